package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusEndpoint(t *testing.T) {
	tests := []struct {
		description string
		response    string
		wantCode    int
		wantBody    string
	}{
		{
			description: "empty response",
			wantCode:    http.StatusNoContent,
		},
		{
			description: "configured response",
			response:    "ready",
			wantCode:    http.StatusOK,
			wantBody:    "ready",
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			handler := NewStatusEndpoint(test.response)

			recorder := httptest.NewRecorder()
			handler(recorder, httptest.NewRequest(http.MethodGet, "/status", nil), nil)

			assert.Equal(t, test.wantCode, recorder.Code)
			assert.Equal(t, test.wantBody, recorder.Body.String())
		})
	}
}
