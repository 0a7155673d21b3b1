// Package middleware holds the HTTP middleware chain: client metadata, tenant resolution, bearer
// authentication, guards, rate limiting, metrics and security headers.
package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/reqctx"
)

// ProxyTrust decides which peers may report the client address through X-Forwarded-For or
// X-Real-IP. The zero value and a nil *ProxyTrust trust nobody.
type ProxyTrust struct {
	prefixes []netip.Prefix
}

// NewProxyTrust returns a ProxyTrust for the given proxy networks.
func NewProxyTrust(prefixes []netip.Prefix) *ProxyTrust {
	return &ProxyTrust{prefixes: prefixes}
}

func (p *ProxyTrust) trusts(addr netip.Addr) bool {
	if p == nil || !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, pfx := range p.prefixes {
		if pfx.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the address of the peer that opened the connection, or "unknown". When that
// peer is a trusted proxy, the right-most X-Forwarded-For hop that is not itself a trusted proxy
// is returned instead, then X-Real-IP.
func (p *ProxyTrust) ClientIP(r *http.Request) string {
	peer := peerHost(r.RemoteAddr)
	if peer == "" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil || !p.trusts(addr) {
		return peer
	}

	hops := forwardedHops(r.Header.Values("X-Forwarded-For"))
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(hops[i])
		if err != nil {
			// Anything left of a malformed entry cannot be attributed.
			break
		}
		if !p.trusts(hop) {
			return hop.Unmap().String()
		}
	}
	if ip, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return ip.Unmap().String()
	}
	return peer
}

func peerHost(remote string) string {
	if remote == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return remote
}

func forwardedHops(values []string) []string {
	var hops []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				hops = append(hops, s)
			}
		}
	}
	return hops
}

// Client stores the caller's user agent and IP in the request context for refresh token records,
// audit rows and the rate limiter.
func Client(trust *ProxyTrust) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			meta := reqctx.ClientMeta{UserAgent: r.UserAgent(), IP: trust.ClientIP(r)}
			next.ServeHTTP(w, r.WithContext(reqctx.WithClient(r.Context(), meta)))
		})
	}
}
