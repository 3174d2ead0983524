package crawl

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// robotsRule is one Allow or Disallow line from a robots.txt group.
type robotsRule struct {
	path  string
	allow bool
}

// robotsGroup holds the rules that apply to one set of user agents.
type robotsGroup struct {
	agents []string
	rules  []robotsRule
}

// RobotsChecker fetches and caches robots.txt per domain and answers
// whether a URL may be crawled. Fetch failures fail open: a site whose
// robots.txt cannot be read is treated as unrestricted.
type RobotsChecker struct {
	userAgent string
	client    *http.Client

	mu     sync.Mutex
	groups map[string][]robotsGroup
}

// NewRobotsChecker creates a RobotsChecker using the given HTTP client.
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		userAgent: userAgent,
		client:    client,
		groups:    make(map[string][]robotsGroup),
	}
}

// CanFetch reports whether robots.txt allows fetching the URL.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}

	groups := r.domainGroups(ctx, parsed)
	if len(groups) == 0 {
		return true
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return allowedByGroups(groups, r.userAgent, path)
}

func (r *RobotsChecker) domainGroups(ctx context.Context, u *url.URL) []robotsGroup {
	r.mu.Lock()
	groups, ok := r.groups[u.Host]
	r.mu.Unlock()
	if ok {
		return groups
	}

	groups = r.fetchRobots(ctx, u.Scheme+"://"+u.Host+"/robots.txt")

	r.mu.Lock()
	r.groups[u.Host] = groups
	r.mu.Unlock()
	return groups
}

func (r *RobotsChecker) fetchRobots(ctx context.Context, robotsURL string) []robotsGroup {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		zap.L().Debug("crawl: robots.txt fetch failed",
			zap.String("url", robotsURL),
			zap.Error(err),
		)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 128*1024))
	if err != nil {
		return nil
	}
	return parseRobots(string(body))
}

// parseRobots reads user-agent groups with their Allow/Disallow rules.
// Unknown directives are skipped.
func parseRobots(content string) []robotsGroup {
	var groups []robotsGroup
	var current *robotsGroup
	inAgents := false

	for _, line := range strings.Split(content, "\n") {
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if !inAgents {
				groups = append(groups, robotsGroup{})
				current = &groups[len(groups)-1]
			}
			current.agents = append(current.agents, strings.ToLower(value))
			inAgents = true
		case "allow", "disallow":
			if current == nil {
				continue
			}
			inAgents = false
			if value == "" && key == "disallow" {
				// Empty Disallow means allow everything.
				continue
			}
			current.rules = append(current.rules, robotsRule{
				path:  value,
				allow: key == "allow",
			})
		default:
			inAgents = false
		}
	}
	return groups
}

// allowedByGroups applies the most specific matching rule from the group
// for the given agent, falling back to the wildcard group.
func allowedByGroups(groups []robotsGroup, userAgent, path string) bool {
	agent := strings.ToLower(userAgent)

	group := matchGroup(groups, agent)
	if group == nil {
		group = matchGroup(groups, "*")
	}
	if group == nil {
		return true
	}

	var best *robotsRule
	for i := range group.rules {
		rule := &group.rules[i]
		if !strings.HasPrefix(path, rule.path) {
			continue
		}
		if best == nil || len(rule.path) > len(best.path) {
			best = rule
		}
	}
	if best == nil {
		return true
	}
	return best.allow
}

func matchGroup(groups []robotsGroup, agent string) *robotsGroup {
	for i := range groups {
		for _, a := range groups[i].agents {
			if a == "*" && agent != "*" {
				continue
			}
			if a == agent || (a != "*" && strings.Contains(agent, a)) {
				return &groups[i]
			}
		}
	}
	return nil
}
