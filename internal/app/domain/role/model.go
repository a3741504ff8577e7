// Package role defines the reviewer role tags and their stored form.
package role

import (
	"fmt"
	"strings"
)

// Role is a reviewer privilege tag.
type Role string

const (
	Curator Role = "curator"
	Admin   Role = "admin"
	Owner   Role = "owner"
)

// Parse normalizes a user-supplied role name.
func Parse(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case Curator:
		return Curator, nil
	case Admin:
		return Admin, nil
	case Owner:
		return Owner, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Record is the stored role set for one actor. Roles accumulate; there is no
// revocation operation.
type Record struct {
	ActorID string `json:"username"`
	Roles   []Role `json:"roles"`
}

// Has reports whether the record contains the role.
func (r Record) Has(role Role) bool {
	for _, held := range r.Roles {
		if held == role {
			return true
		}
	}
	return false
}

// Normalize strips the conventional @ prefix and surrounding space from a
// chat handle so stored identities compare consistently.
func Normalize(actorID string) string {
	return strings.TrimPrefix(strings.TrimSpace(actorID), "@")
}
