package ratelimit

import (
	"strings"
	"time"
)

// Catch-all rule applied to paths without an endpoint rule.
const (
	DefaultLimit           = 1000
	DefaultWindow          = time.Minute
	DefaultCleanupInterval = 5 * time.Minute
)

// EndpointConfig is the rule for one method and path prefix.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// NewConfig returns an enabled configuration with the API's endpoint rules.
// A non-positive limit or window falls back to the catch-all defaults.
func NewConfig(limit int, window time.Duration, allow, deny []string) *Config {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    limit,
		DefaultWindow:   window,
		CleanupInterval: DefaultCleanupInterval,
		Whitelist:       ipSet(allow),
		Blacklist:       ipSet(deny),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// Disabled returns a configuration that admits every request.
func Disabled() *Config {
	return &Config{Enabled: false}
}

// DefaultEndpointConfigs returns the per-endpoint rules. Model and browser
// backed calls get the strictest budgets.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/parse-resume", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/download-pdf", Method: "POST", Limit: 60, Window: time.Hour, Burst: 10},
		{Path: "/resumes/cleanup", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},

		{Path: "/resumes", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/resumes/", Method: "PATCH", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/resumes/", Method: "DELETE", Limit: 60, Window: time.Minute, Burst: 10},

		// Reads fall through to the default limit; GET /health is unlimited.
	}
}

func ipSet(ips []string) map[string]bool {
	set := make(map[string]bool, len(ips))
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = true
		}
	}
	return set
}
