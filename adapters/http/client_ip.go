package authhttp

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPFunc picks the address a request is rate limited under. An empty
// result means unknown and the request is not limited.
type ClientIPFunc func(r *http.Request) string

// DefaultClientIP uses RemoteAddr when it is public. Private and loopback
// peers yield "" so a reverse proxy is never limited as one client.
func DefaultClientIP() ClientIPFunc {
	return func(r *http.Request) string {
		a, ok := parseAddr(remoteIP(r))
		if ok && isPublicAddr(a) {
			return a.String()
		}
		return ""
	}
}

// ClientIPFromForwardedHeaders reads CF-Connecting-IP, then the left-most
// X-Forwarded-For entry, but only when the peer is inside trustedProxies.
func ClientIPFromForwardedHeaders(trustedProxies []netip.Prefix) ClientIPFunc {
	return func(r *http.Request) string {
		peer, ok := parseAddr(remoteIP(r))
		if !ok {
			return ""
		}
		if trustedPeer(peer, trustedProxies) {
			if a, ok := parseAddr(r.Header.Get("CF-Connecting-IP")); ok && isPublicAddr(a) {
				return a.String()
			}
			xff := r.Header.Get("X-Forwarded-For")
			if i := strings.IndexByte(xff, ','); i >= 0 {
				xff = xff[:i]
			}
			if a, ok := parseAddr(xff); ok && isPublicAddr(a) {
				return a.String()
			}
		}
		if isPublicAddr(peer) {
			return peer.String()
		}
		return ""
	}
}

func trustedPeer(peer netip.Addr, prefixes []netip.Prefix) bool {
	for _, p := range prefixes {
		if p.Contains(peer) {
			return true
		}
	}
	return false
}

func parseAddr(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap(), true
}

func remoteIP(r *http.Request) string {
	if r == nil || r.RemoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func isPublicAddr(a netip.Addr) bool {
	if !a.IsValid() {
		return false
	}
	return !a.IsLoopback() && !a.IsPrivate() && !a.IsLinkLocalUnicast() &&
		!a.IsLinkLocalMulticast() && !a.IsMulticast() && !a.IsUnspecified()
}
