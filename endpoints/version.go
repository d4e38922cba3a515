package endpoints

import (
	"net/http"

	"github.com/allegro/ortb-bridge/util/jsonutil"
	"github.com/golang/glog"
)

const notSet = "not-set"

type versionResponse struct {
	Revision string `json:"revision"`
	Version  string `json:"version"`
}

// NewVersionEndpoint reports the build version and the git revision baked into the binary.
// Both fall back to "not-set" for local builds.
func NewVersionEndpoint(version, revision string) http.HandlerFunc {
	body, err := jsonutil.Marshal(versionResponse{
		Revision: orNotSet(revision),
		Version:  orNotSet(version),
	})
	if err != nil {
		glog.Fatalf("error creating /version endpoint response: %v", err)
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}

func orNotSet(value string) string {
	if value == "" {
		return notSet
	}
	return value
}
