package rbac

import "fmt"

// Role is the ordered authorization level of a user. Checks compare
// ranks, never exact values: a department admin can do anything an
// approver can.
type Role string

const (
	RoleGeneralUser     Role = "general_user"
	RoleApprover        Role = "approver"
	RoleDepartmentAdmin Role = "department_admin"
	RoleAdmin           Role = "admin"
)

var roleRanks = map[Role]int{
	RoleGeneralUser:     1,
	RoleApprover:        2,
	RoleDepartmentAdmin: 3,
	RoleAdmin:           4,
}

func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether r is authorized for an action requiring the
// given role. Unknown roles rank zero and never pass.
func (r Role) AtLeast(required Role) bool {
	return r.Valid() && required.Valid() && r.Rank() >= required.Rank()
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}
