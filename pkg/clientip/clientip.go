package clientip

import (
	"net"
	"net/http"
	"strings"
)

// trustForwarded is set at startup when the service runs behind a proxy
// that overwrites X-Forwarded-For.
var trustForwarded bool

// TrustForwardedFor makes RealClientIP honour the first X-Forwarded-For
// entry. Call it once before serving.
func TrustForwardedFor(trust bool) {
	trustForwarded = trust
}

// RealClientIP returns the client IP from the request. Without a trusted
// proxy it uses r.RemoteAddr only.
func RealClientIP(r *http.Request) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}
