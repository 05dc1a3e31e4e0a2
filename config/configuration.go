package config

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/goliatone/go-errors"
	"github.com/mitchellh/copystructure"
)

// Lookuper resolves a path to a present value.
type Lookuper interface {
	Lookup(path string) (any, bool)
}

// Configuration is a path addressable tree of settings.
//
// Paths use "." between levels and "[N]" for list indices, so
// "servers[0].host" and "servers.0.host" address the same value.
// A Configuration is not safe for concurrent mutation.
type Configuration struct {
	root map[string]any
}

// New wraps root without copying it. A nil root yields an empty tree.
func New(root map[string]any) *Configuration {
	if root == nil {
		root = map[string]any{}
	}
	return &Configuration{root: root}
}

// Raw returns the underlying tree.
func (c *Configuration) Raw() map[string]any {
	return c.root
}

// Lookup returns the value at path and whether it is present. A stored
// nil counts as present; holes in sparse lists do not.
func (c *Configuration) Lookup(path string) (any, bool) {
	return walk(c.root, path)
}

// Get returns the value at path, or def[0] when the path is absent.
func (c *Configuration) Get(path string, def ...any) any {
	if v, ok := c.Lookup(path); ok {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return nil
}

// GetString is a convenience around Get for string leaves.
func (c *Configuration) GetString(path string, def ...string) string {
	if v, ok := c.Lookup(path); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

// Has reports whether path resolves to a present value, including
// zero values such as 0, false and "".
func (c *Configuration) Has(path string) bool {
	_, ok := c.Lookup(path)
	return ok
}

// Set stores value at path, creating intermediate levels as needed.
// Segments that are list indices create lists with Absent below the
// index. Setting Absent is a no-op.
func (c *Configuration) Set(path string, value any) {
	if IsAbsent(value) {
		return
	}
	value = normalizeValue(value)
	mergeInto(c.root, pathTree(SplitPath(path), value))
}

// Merge deep merges values into the tree. Dotted keys inside values are
// expanded into nested levels first.
func (c *Configuration) Merge(values map[string]any) {
	if len(values) == 0 {
		return
	}
	mergeInto(c.root, normalizeMap(values))
}

// Assign is the untyped form of Set and Merge for callers holding data
// of unknown shape:
//
//	Assign(map)        merges the map
//	Assign("k")        no-op
//	Assign("k", v)     Set("k", v)
//
// Any other key type fails with ErrInvalidKey.
func (c *Configuration) Assign(key any, value ...any) error {
	switch k := key.(type) {
	case string:
		if len(value) == 0 {
			return nil
		}
		c.Set(k, value[0])
		return nil
	case *Configuration:
		if k == nil {
			break
		}
		c.Merge(k.Raw())
		return nil
	case nil:
	default:
		if m, ok := normalizeValue(k).(map[string]any); ok {
			if len(value) > 0 && !IsAbsent(value[0]) {
				break
			}
			mergeInto(c.root, m)
			return nil
		}
	}

	return errors.Wrap(ErrInvalidKey, errors.CategoryBadInput, "key must be a string or a map").
		WithTextCode("INVALID_KEY").
		WithMetadata(map[string]any{
			"key_type": typeName(key),
		})
}

// Section returns the sub tree at path. Map sections share storage with
// the parent, lists are exposed with their indices as keys. Absent paths
// and scalars yield an empty section.
func (c *Configuration) Section(path string) *Configuration {
	v, _ := c.Lookup(path)
	return New(sectionRoot(v))
}

// RequiredSection is Section but fails with ErrSectionNotFound when path
// is absent.
func (c *Configuration) RequiredSection(path string) (*Configuration, error) {
	v, ok := c.Lookup(path)
	if !ok {
		return nil, errors.Wrap(ErrSectionNotFound, errors.CategoryBadInput, "required section "+path+" not found").
			WithTextCode("SECTION_NOT_FOUND").
			WithMetadata(map[string]any{
				"path": path,
			})
	}
	return New(sectionRoot(v)), nil
}

// Keys returns the sorted top level keys.
func (c *Configuration) Keys() []string {
	keys := make([]string, 0, len(c.root))
	for k := range c.root {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the tree.
func (c *Configuration) Clone() (*Configuration, error) {
	cp, err := copystructure.Copy(c.root)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to clone configuration").
			WithTextCode("CLONE_FAILED")
	}
	return New(cp.(map[string]any)), nil
}

// Plain returns a deep copy where holes are replaced by nil, suitable for
// encoders and decoders that do not know about Absent.
func (c *Configuration) Plain() map[string]any {
	return plainMap(c.root)
}

func (c *Configuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.root)
}

func sectionRoot(v any) map[string]any {
	switch node := v.(type) {
	case map[string]any:
		return node
	case []any:
		out := make(map[string]any, len(node))
		for i, item := range node {
			if IsAbsent(item) {
				continue
			}
			out[strconv.Itoa(i)] = item
		}
		return out
	}
	return map[string]any{}
}

func plainMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch node := v.(type) {
	case map[string]any:
		return plainMap(node)
	case []any:
		out := make([]any, len(node))
		for i, item := range node {
			out[i] = plainValue(item)
		}
		return out
	}
	if IsAbsent(v) {
		return nil
	}
	return v
}
