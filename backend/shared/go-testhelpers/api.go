package testhelpers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/stretchr/testify/require"
)

// BuildAuthRequest builds a request carrying the JWT as a Bearer token.
// An empty jwtString produces an unauthenticated request.
func (h *TestHelper) BuildAuthRequest(method, reqURL, jwtString string, body []byte) *http.Request {
	req := httptest.NewRequest(method, reqURL, bytes.NewReader(body))
	if jwtString != "" {
		req.Header.Set("Authorization", "Bearer "+jwtString)
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// MustJSON marshals v or fails the test.
func (h *TestHelper) MustJSON(v any) []byte {
	b, err := json.Marshal(v)
	require.NoError(h.T, err)
	return b
}

// Serve runs req through handler and returns the recorded response.
func (h *TestHelper) Serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// DecodeJSON reads the body into out or fails the test.
func (h *TestHelper) DecodeJSON(body io.Reader, out any) {
	require.NoError(h.T, json.NewDecoder(body).Decode(out))
}
