package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Checks: deps.HealthChecks}
	auth := AuthHandler{Sessions: deps.Sessions}
	mutual := MutualHandler{Service: deps.Mutuals}
	admin := AdminHandler{
		Admin:    deps.Admin,
		Service:  deps.Mutuals,
		Settings: deps.Settings,
		Sessions: deps.Sessions,
		Users:    deps.Users,
		Events:   deps.Events,
	}

	mux.HandleFunc("/healthz", health.Handle)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/mutuals", mutual.Get)
	mux.HandleFunc("/api/v1/mutuals/all", mutual.All)
	mux.HandleFunc("/api/v1/admin/cache/clear", admin.ClearCache)
	mux.HandleFunc("/api/v1/admin/settings", admin.ManageSettings)
	mux.HandleFunc("/api/v1/admin/sessions", admin.IssueSession)
	mux.HandleFunc("/api/v1/events/friendship", admin.FriendshipEvent)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Mutuals      MutualsService
	Sessions     SessionManager
	Settings     SettingsManager
	Users        UserDirectory
	Events       EventPublisher
	Admin        AdminVerifier
	HealthChecks map[string]HealthCheck
}
