package health

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// Default probe paths.
const (
	LivenessPath  = "/health"
	ReadinessPath = "/ready"
	VersionPath   = "/version"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// LivenessHandler serves the liveness probe. It always answers 200.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowed(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, c.Liveness())
	}
}

// ReadinessHandler serves the readiness probe: 200 when every check passes,
// 503 otherwise.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowed(w, r) {
			return
		}
		report := c.Readiness(r.Context())
		code := http.StatusOK
		if !report.Ready() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, report)
	}
}

// VersionHandler serves build information.
func VersionHandler(info BuildInfo) http.HandlerFunc {
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowed(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, info)
	}
}

// Register mounts the liveness, readiness and version endpoints on mux.
func Register(mux *http.ServeMux, c *Checker, info BuildInfo) {
	mux.HandleFunc(LivenessPath, c.LivenessHandler())
	mux.HandleFunc(ReadinessPath, c.ReadinessHandler())
	mux.HandleFunc(VersionPath, VersionHandler(info))
}

func allowed(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(body)
	}
}
