package router

import (
	"net/http"
	"net/http/pprof"

	"github.com/allegro/ortb-bridge/endpoints"
)

// Admin serves the version, the status and the runtime profiles on the admin port.
func Admin(version, revision, statusResponse string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/version", endpoints.NewVersionEndpoint(version, revision))
	status := endpoints.NewStatusEndpoint(statusResponse)
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		status(w, r, nil)
	})
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
