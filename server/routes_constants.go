package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// SSO login routes
	RouteSSOTokenLogin    = "/api/private/auth/sso"
	RouteSSOProviderLogin = "/api/public/auth/sso/login"

	// Session routes (require a local session token)
	RouteAuthMe = "/api/private/auth/me"

	// Operational routes
	RouteHealth  = "/api/public/health"
	RouteMetrics = "/metrics"
)
