package rbac

import "fmt"

// Plan is the subscription tier. It gates feature areas independently of
// role: a Free-plan admin still cannot manage departments.
type Plan string

const (
	PlanFree       Plan = "Free"
	PlanPro        Plan = "Pro"
	PlanEnterprise Plan = "Enterprise"
)

var planRanks = map[Plan]int{
	PlanFree:       1,
	PlanPro:        2,
	PlanEnterprise: 3,
}

func (p Plan) Valid() bool {
	_, ok := planRanks[p]
	return ok
}

func (p Plan) Meets(required Plan) bool {
	return p.Valid() && required.Valid() && planRanks[p] >= planRanks[required]
}

func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown plan: %q", s)
	}
	return p, nil
}

// CanManageDepartments requires both conditions, not a ranked
// comparison: Enterprise plan AND admin role.
func CanManageDepartments(role Role, plan Plan) bool {
	return role == RoleAdmin && plan == PlanEnterprise
}
