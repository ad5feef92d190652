package domain

// Route names a user-facing view. Navigation signals carry one of these.
type Route string

const (
	RouteHome              Route = "/"
	RouteLogin             Route = "/login"
	RouteCustomerDashboard Route = "/customer/dashboard"
	RouteNewClaim          Route = "/customer/new-claim"
	RouteApproverDashboard Route = "/approver/dashboard"
)

// RouteAccess describes which roles may open a route. An empty Roles slice means public.
type RouteAccess struct {
	Route Route
	Roles []Role
}

// Routes is the portal's route table.
var Routes = []RouteAccess{
	{Route: RouteHome},
	{Route: RouteLogin},
	{Route: RouteCustomerDashboard, Roles: []Role{RoleCustomer}},
	{Route: RouteNewClaim, Roles: []Role{RoleCustomer}},
	{Route: RouteApproverDashboard, Roles: []Role{RoleApprover}},
}

// Allows reports whether user may open the route. A nil user is anonymous.
func (a RouteAccess) Allows(user *User) bool {
	if len(a.Roles) == 0 {
		return true
	}
	if user == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == user.Role {
			return true
		}
	}
	return false
}

// Guard decides where a user trying to open roles-protected content ends up.
// It returns ok=true when access is granted; otherwise redirect is the login
// view for anonymous users and home for users with the wrong role.
func Guard(user *User, roles ...Role) (redirect Route, ok bool) {
	access := RouteAccess{Roles: roles}
	if access.Allows(user) {
		return "", true
	}
	if user == nil {
		return RouteLogin, false
	}
	return RouteHome, false
}
