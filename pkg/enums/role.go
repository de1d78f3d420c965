package enums

import (
	"fmt"
	"strings"
)

// Role identifies the caller class carried in access tokens.
type Role string

const (
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

var validRoles = []Role{RoleVendor, RoleAdmin, RoleSystem}

func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
