package app

import (
	"net/http"
)

// HealthStatus is the body of GET /v1/healthcheck.
type HealthStatus struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	Upstream    string `json:"upstream"`
	Sessions    int    `json:"sessions"`
	Ready       bool   `json:"ready"`
}

// healthcheckHandler reports readiness. The service is ready once exactly
// one upstream is configured and a fetcher was built for it; otherwise it
// answers 500.
func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	ready := app.Fetcher != nil && app.Config.ValidateUpstream() == nil

	sessions := 0
	if app.Sessions != nil {
		sessions = app.Sessions.Len()
	}

	status := HealthStatus{
		Status:      "available",
		Environment: app.Config.Env,
		Version:     app.Version,
		Upstream:    app.Config.UpstreamName(),
		Sessions:    sessions,
		Ready:       ready,
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusInternalServerError
	}
	app.writeJSON(w, code, status)
}
