package tenant

import (
	"net/http/httptest"
	"testing"
)

func TestResolver_ResolveParts(t *testing.T) {
	r := NewResolver([]string{"index.html", "assets"})

	tests := []struct {
		name     string
		path     string
		host     string
		want     string
		resolved bool
	}{
		{
			name:     "path segment wins over subdomain",
			path:     "/acme/dashboard",
			host:     "app.example.com",
			want:     "acme",
			resolved: true,
		},
		{
			name:     "plain path segment",
			path:     "/globex",
			host:     "example.com",
			want:     "globex",
			resolved: true,
		},
		{
			name:     "reserved segment falls through to subdomain",
			path:     "/index.html",
			host:     "acme.example.com",
			want:     "acme",
			resolved: true,
		},
		{
			name:     "empty path with subdomain",
			path:     "/",
			host:     "acme.example.com",
			want:     "acme",
			resolved: true,
		},
		{
			name:     "subdomain host with port",
			path:     "",
			host:     "acme.example.com:8080",
			want:     "acme",
			resolved: true,
		},
		{
			name:     "empty path and two-label host",
			path:     "/",
			host:     "example.com",
			resolved: false,
		},
		{
			name:     "reserved segment and two-label host",
			path:     "/assets/logo.png",
			host:     "example.com",
			resolved: false,
		},
		{
			name:     "empty everything",
			path:     "",
			host:     "localhost",
			resolved: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.ResolveParts(tt.path, tt.host)
			if ok != tt.resolved {
				t.Fatalf("ResolveParts() resolved = %v, want %v", ok, tt.resolved)
			}
			if ok && got != tt.want {
				t.Errorf("ResolveParts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver([]string{"index.html"})

	req := httptest.NewRequest("GET", "/acme/dashboard", nil)
	req.Host = "app.example.com"

	got, ok := r.Resolve(req)
	if !ok {
		t.Fatal("Resolve() unresolved, want acme")
	}
	if got != "acme" {
		t.Errorf("Resolve() = %v, want acme", got)
	}
}
