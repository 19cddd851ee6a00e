// Package consent implements the per-thread two-party agreement state
// machine controlling image uploads. Each participant owns one boolean flag
// addressed by their canonical role; uploads are enabled only while both
// flags are true. There is no terminal state: consent can be revoked at any
// time, which immediately disables future uploads without affecting already
// accepted messages.
package consent

import (
	"matchchat/pkg/errdefs"
	"matchchat/pkg/models"
)

// Resolve returns the role user occupies on the thread. Non-participants
// fail with ErrForbidden: only the owner of a role may change its flag.
func Resolve(t *models.Thread, user int64) (models.Role, error) {
	role, ok := t.RoleOf(user)
	if !ok {
		return "", errdefs.ErrForbidden
	}
	return role, nil
}

// Set applies value to the given role's flag and reports whether the flag
// changed. Setting a flag to its current value is a valid no-op.
func Set(t *models.Thread, role models.Role, value bool) bool {
	if t.Agrees(role) == value {
		return false
	}
	t.SetAgrees(role, value)
	return true
}

// SetFor resolves the caller's role and applies value to it. Either party
// may flip their own flag independently at any time.
func SetFor(t *models.Thread, user int64, value bool) (models.Role, bool, error) {
	role, err := Resolve(t, user)
	if err != nil {
		return "", false, err
	}
	return role, Set(t, role, value), nil
}
