package main

import (
	"log"
	"net"
	"net/http"
	"strings"
)

// debugGuard wraps the diagnostic endpoints (/debug, /test-user/...) with an
// IP allowlist. With no allowlist configured the guard is a no-op — the
// endpoints expose only configuration presence and issue metadata, so open
// access is the accepted default for internal deployments.
func debugGuard(allowedCIDRs string, next http.Handler) http.Handler {
	allowed := parseAllowlist(allowedCIDRs)
	if len(allowed) == 0 {
		return next
	}

	log.Printf("[debug] diagnostic endpoints restricted to: %s", allowedCIDRs)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Behind a load balancer the original client is the first entry of
		// X-Forwarded-For; otherwise use the connection's remote address.
		source := r.Header.Get("X-Forwarded-For")
		if source != "" {
			if comma := strings.IndexByte(source, ','); comma >= 0 {
				source = source[:comma]
			}
		} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			source = host
		} else {
			source = r.RemoteAddr
		}

		if ip := net.ParseIP(strings.TrimSpace(source)); ip != nil {
			for _, network := range allowed {
				if network.Contains(ip) {
					next.ServeHTTP(w, r)
					return
				}
			}
		}

		log.Printf("[debug] denied diagnostic request from %s to %s", source, r.URL.Path)
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
}

// parseAllowlist reads a comma-separated CIDR list; bare addresses become
// single-host networks. Invalid entries are skipped, not fatal.
func parseAllowlist(raw string) []*net.IPNet {
	var allowed []*net.IPNet
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			if strings.Contains(entry, ":") {
				entry += "/128"
			} else {
				entry += "/32"
			}
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			log.Printf("[debug] ignoring invalid allowlist entry %q: %v", entry, err)
			continue
		}
		allowed = append(allowed, network)
	}
	return allowed
}
