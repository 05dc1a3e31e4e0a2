package config

type absent struct{}

func (absent) String() string { return "<absent>" }

// MarshalJSON renders holes in sparse lists as null.
func (absent) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Absent marks a slot that holds no value. It fills the lower indices of
// lists created from paths such as "servers[2]" and is never reported as
// present by Lookup or Has. Passing Absent to Set is a no-op.
var Absent any = absent{}

// IsAbsent reports whether v is the Absent marker.
func IsAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}
