package roles

import "github.com/google/uuid"

// roleNamespace is fixed forever: changing it renumbers every stored role_id.
var roleNamespace = uuid.MustParse("ef5d0f45-83c6-5dbe-b15a-e017bc88ab5a")

// ID returns the stable UUIDv5 for r, derived from its slug. The session
// event log keys rows by it so role renames in display text never split history.
func (r Role) ID() uuid.UUID {
	return uuid.NewSHA1(roleNamespace, []byte("role:"+string(r)))
}
