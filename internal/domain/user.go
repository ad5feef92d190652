package domain

// Role selects which dashboard and actions a user is allowed.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleApprover Role = "approver"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleApprover
}

// User represents an identity known to the portal. Users are seeded once and never mutated.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// HomeRoute returns the view a user lands on after login.
func (u User) HomeRoute() Route {
	switch u.Role {
	case RoleCustomer:
		return RouteCustomerDashboard
	case RoleApprover:
		return RouteApproverDashboard
	default:
		return RouteHome
	}
}
