package crawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRobots(t *testing.T) {
	content := `
# crawler policy
User-agent: *
Disallow: /admin
Allow: /admin/public

User-agent: matargetbot
Disallow: /private
`
	groups := parseRobots(content)

	tests := []struct {
		name  string
		agent string
		path  string
		want  bool
	}{
		{"wildcard blocked", "SomeBot/1.0", "/admin/settings", false},
		{"wildcard allow override", "SomeBot/1.0", "/admin/public/docs", true},
		{"wildcard open path", "SomeBot/1.0", "/products", true},
		{"specific agent blocked", "MATargetBot/1.0", "/private/data", false},
		{"specific agent ignores wildcard rules", "MATargetBot/1.0", "/admin", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, allowedByGroups(groups, tt.agent, tt.path))
		})
	}
}

func TestParseRobotsEmptyDisallow(t *testing.T) {
	groups := parseRobots("User-agent: *\nDisallow:\n")
	assert.True(t, allowedByGroups(groups, "AnyBot", "/anything"))
}

func TestCanFetchNoRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	checker := NewRobotsChecker(srv.Client(), "MATargetBot/1.0")
	assert.True(t, checker.CanFetch(context.Background(), srv.URL+"/page"))
}

func TestCanFetchBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /secret\n"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	checker := NewRobotsChecker(srv.Client(), "MATargetBot/1.0")

	assert.False(t, checker.CanFetch(context.Background(), srv.URL+"/secret/page"))
	assert.True(t, checker.CanFetch(context.Background(), srv.URL+"/public"))
}

func TestCanFetchBadURL(t *testing.T) {
	checker := NewRobotsChecker(http.DefaultClient, "MATargetBot/1.0")
	assert.False(t, checker.CanFetch(context.Background(), "not a url"))
}
