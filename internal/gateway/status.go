package gateway

import (
	"net/http"
	"os"
	"time"

	"github.com/flemzord/sjobs/internal/core"
	"gopkg.in/yaml.v3"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime   time.Duration `json:"uptime_seconds"`
	Health   string        `json:"health"`
	JobsURL  string        `json:"jobs_url,omitempty"`
	Bind     string        `json:"bind"`
	Auditing bool          `json:"auditing"`
}

// jobsURLer is implemented by clients that expose their collection address.
type jobsURLer interface {
	JobsURL() string
}

func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime:   time.Since(g.startedAt).Truncate(time.Second),
			Health:   "ok",
			Bind:     g.config.Bind,
			Auditing: g.audit != nil,
		}
		if g.probe != nil && !g.probe.Report().Available {
			resp.Health = "degraded"
		}
		if u, ok := g.jobs.(jobsURLer); ok {
			resp.JobsURL = u.JobsURL()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// handleListModules lists the compiled modules, optionally restricted to
// one namespace with ?namespace=.
func (g *Gateway) handleListModules() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mods := core.ModulesIn(r.URL.Query().Get("namespace"))
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Name:      m.ID.Name(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleGetConfig returns the config file as written, before variable
// expansion, with secret-looking values redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		path, _ := g.appCtx.Service("config.path")
		cfgPath, _ := path.(string)
		if cfgPath == "" {
			writeError(w, http.StatusServiceUnavailable, "config path not set")
			return
		}

		raw, err := os.ReadFile(cfgPath)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read config")
			return
		}
		var generic map[string]any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to parse config")
			return
		}

		if g.redactor != nil {
			g.redactor.RedactMap(generic)
		}
		writeJSON(w, http.StatusOK, generic)
	}
}
