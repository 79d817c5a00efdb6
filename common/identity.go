package common

import (
	"fmt"
	"strings"
)

// RoleType defines the kind of party an account acts as.
type RoleType string

const (
	RoleOrganization RoleType = "organization"
	RoleMerchant     RoleType = "merchant"
	RoleHomeless     RoleType = "homeless"
	RoleDonor        RoleType = "donor"
	RoleAdmin        RoleType = "admin"
)

// ParseRole converts a raw role string (case-insensitive) into a RoleType.
//
//	ParseRole("Merchant")  => RoleMerchant, nil
//	ParseRole("volunteer") => "", error
func ParseRole(s string) (RoleType, error) {
	switch r := RoleType(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleOrganization, RoleMerchant, RoleHomeless, RoleDonor, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// HasProfile reports whether accounts of this role own a conversation profile.
func (r RoleType) HasProfile() bool {
	return r == RoleOrganization || r == RoleMerchant || r == RoleHomeless
}

// Principal is an authenticated caller.
// ProfileId is the role-specific profile owned by the account, empty for admin and donor.
type Principal struct {
	Id          string
	Role        RoleType
	ProfileId   string
	DisplayName string
}

// String renders the principal for logs, e.g. "merchant:acc-42".
func (p *Principal) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s:%s", p.Role, p.Id)
}
