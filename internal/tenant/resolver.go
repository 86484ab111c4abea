package tenant

import (
	"net"
	"net/http"
	"strings"
)

// Resolver derives a tenant identifier from the request URL.
//
// Resolution order:
//  1. the first path segment, when non-empty and not a reserved literal
//  2. the leftmost host label, when the host has more than two dot-separated
//     labels (subdomain form)
//  3. unresolved
type Resolver struct {
	reserved map[string]struct{}
}

// NewResolver creates a resolver. Reserved segments are path prefixes that
// can never name a tenant (the default document, asset mounts, etc).
func NewResolver(reserved []string) *Resolver {
	r := &Resolver{reserved: make(map[string]struct{}, len(reserved))}
	for _, s := range reserved {
		r.reserved[s] = struct{}{}
	}
	return r
}

// Resolve returns the tenant identifier for the request, or false when no
// tenant can be determined. An unresolved tenant is a normal outcome the
// caller must handle; it is never an error.
func (r *Resolver) Resolve(req *http.Request) (string, bool) {
	return r.ResolveParts(req.URL.Path, req.Host)
}

// ResolveParts applies the resolution algorithm to a raw path and host.
func (r *Resolver) ResolveParts(path, host string) (string, bool) {
	if seg := firstSegment(path); seg != "" {
		if _, ok := r.reserved[seg]; !ok {
			return seg, true
		}
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if labels := strings.Split(host, "."); len(labels) > 2 {
		if labels[0] != "" {
			return labels[0], true
		}
	}

	return "", false
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}
