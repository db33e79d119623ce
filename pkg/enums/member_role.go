package enums

import "fmt"

// MemberRole represents a platform-level permissions role.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleOps    MemberRole = "ops"
	MemberRoleSeller MemberRole = "seller"
	MemberRoleBidder MemberRole = "bidder"
)

var validMemberRoles = []MemberRole{
	MemberRoleAdmin,
	MemberRoleOps,
	MemberRoleSeller,
	MemberRoleBidder,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// CanGrant reports whether the role may credit balances it does not own.
func (m MemberRole) CanGrant() bool {
	return m == MemberRoleAdmin || m == MemberRoleOps
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
