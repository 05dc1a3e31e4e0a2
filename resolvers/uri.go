package resolvers

import (
	"encoding/base64"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/v2"
)

// ProtocolFunc loads the content addressed by uri.
type ProtocolFunc func(fsys fs.FS, uri string) (string, error)

type uris struct {
	settings   *settings
	delimiters delimiters
}

// NewURIResolver replaces values of the form <start><protocol><sep><uri>,
// e.g. "@file://version.txt", with the content the protocol returns.
// Built in protocols are file, base64 and env.
func NewURIResolver(start, sep string, options ...Option) Resolver {
	return &uris{
		settings:   newSettings(options),
		delimiters: delimiters{Start: start, End: sep},
	}
}

func (s *uris) Resolve(k *koanf.Koanf) *koanf.Koanf {
	if k == nil {
		return k
	}

	keys, values := stringLeaves(k)
	for _, key := range keys {
		s.resolveKey(key, values[key], k)
	}
	return k
}

func (s *uris) resolveKey(key, val string, k *koanf.Koanf) {
	if !strings.HasPrefix(val, s.delimiters.Start) {
		return
	}

	rest := val[len(s.delimiters.Start):]
	protocol, uri, found := strings.Cut(rest, s.delimiters.End)
	if !found || protocol == "" {
		return
	}

	fn, ok := s.settings.protocols[protocol]
	if !ok {
		return
	}

	content, err := fn(s.settings.fsys, uri)
	if err != nil {
		s.settings.onError(key, val, err, k)
		return
	}
	k.Set(key, content)
}

// FileProtocol reads uri from fsys, trimming trailing newlines.
func FileProtocol(fsys fs.FS, uri string) (string, error) {
	b, err := fs.ReadFile(fsys, uri)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\n"), nil
}

// Base64Protocol decodes uri as standard base64.
func Base64Protocol(_ fs.FS, uri string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(uri)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EnvProtocol reads the environment variable named by uri.
func EnvProtocol(_ fs.FS, uri string) (string, error) {
	v, ok := os.LookupEnv(uri)
	if !ok {
		return "", fmt.Errorf("environment variable %s not set", uri)
	}
	return v, nil
}
