package roles

import "strings"

// Role is the fixed set of account roles.
type Role string

const (
	Admin    Role = "admin"
	Bidan    Role = "bidan"
	Dinkes   Role = "dinkes"
	IbuHamil Role = "ibu_hamil"
)

var known = map[Role]struct{}{
	Admin:    {},
	Bidan:    {},
	Dinkes:   {},
	IbuHamil: {},
}

// Parse normalizes a raw role string. ok is false for anything outside the
// enum.
func Parse(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := known[r]
	return r, ok
}

func (r Role) String() string { return string(r) }

// Set is an allowed-role set used by the authorization gate.
type Set map[Role]struct{}

func NewSet(rs ...Role) Set {
	s := make(Set, len(rs))
	for _, r := range rs {
		s[r] = struct{}{}
	}
	return s
}

// Allows reports whether the raw role claim is a member of the set. The raw
// value is case-normalized before comparison.
func (s Set) Allows(raw string) bool {
	r, ok := Parse(raw)
	if !ok {
		return false
	}
	_, ok = s[r]
	return ok
}
