// services/dispatch-service/internal/utils/errors.go

package utils

import (
	"errors"
	"net"
	"net/http"
	"strings"
)

/*
Sentinel errors for dispatch-service domain logic.
The controller can do: if errors.Is(err, ErrXYZ) { ... }
*/
var (
	ErrTermsNotAcknowledged = errors.New("terms_not_acknowledged")
	ErrInvalidAction        = errors.New("invalid_action")
)

// ClientIP is the first X-Forwarded-For hop, or the socket peer.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
