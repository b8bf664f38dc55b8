package roles

import "strings"

// Role is a member of the fixed role set a session may carry.
type Role string

const (
	Owner    Role = "owner"
	Admin    Role = "admin"
	Manager  Role = "manager"
	Chef     Role = "chef"
	Staff    Role = "staff"
	Customer Role = "customer"
)

// All lists every valid role, highest privilege first.
var All = []Role{Owner, Admin, Manager, Chef, Staff, Customer}

// Valid reports whether r is one of the fixed roles. Matching is exact;
// "ADMIN" is not a valid role.
func (r Role) Valid() bool {
	switch r {
	case Owner, Admin, Manager, Chef, Staff, Customer:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Parse normalizes s (trim + lowercase) and returns the matching role.
func Parse(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// Slugs returns the string form of All.
func Slugs() []string {
	out := make([]string, len(All))
	for i, r := range All {
		out[i] = string(r)
	}
	return out
}
