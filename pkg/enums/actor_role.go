package enums

import "fmt"

// ActorRole identifies who is calling finance operations.
type ActorRole string

const (
	RoleAdmin     ActorRole = "admin"
	RoleOrganizer ActorRole = "organizer"
)

var validActorRoles = []ActorRole{
	RoleAdmin,
	RoleOrganizer,
}

// IsValid reports whether the value is a known actor role.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
