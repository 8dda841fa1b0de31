package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// SSO logins
	s.RegisterRouteHandler("POST "+RouteSSOTokenLogin, ChainMiddleware(s.SSOTokenLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSSOProviderLogin, ChainMiddleware(s.SSOProviderLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteSSOTokenLogin, ChainMiddleware(preflightHandler, s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteSSOProviderLogin, ChainMiddleware(preflightHandler, s.APIMiddleware()...))

	// Session-protected routes
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Operational
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

// preflightHandler is never reached for browser preflights; CorsMiddleware
// answers them.
func preflightHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
