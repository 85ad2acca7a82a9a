package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
	})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/resumes", "GET")
		require.True(t, allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/resumes", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
	assert.True(t, info.ResetTime.After(time.Now()))
}

func TestLimiter_Refill(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:         true,
		EndpointConfigs: []EndpointConfig{{Path: "/parse-resume", Method: "POST", Limit: 10, Window: time.Second, Burst: 1}},
	})
	defer limiter.Stop()

	allowed, _ := limiter.Allow("c", "/parse-resume", "POST")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("c", "/parse-resume", "POST")
	require.False(t, allowed)

	time.Sleep(150 * time.Millisecond)
	allowed, _ = limiter.Allow("c", "/parse-resume", "POST")
	assert.True(t, allowed)
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
	})
	defer limiter.Stop()

	for i := 0; i < 50; i++ {
		allowed, _ := limiter.Allow("10.0.0.1", "/resumes", "GET")
		require.True(t, allowed)
	}

	allowed, _ := limiter.Allow("10.0.0.2", "/resumes", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: false})
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		allowed, _ := limiter.Allow("c", "/download-pdf", "POST")
		require.True(t, allowed)
	}
}

func TestLimiter_EndpointRuleOverridesDefault(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: []EndpointConfig{{Path: "/download-pdf", Method: "POST", Limit: 3, Window: time.Hour, Burst: 3}},
	})
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		allowed, info := limiter.Allow("c", "/download-pdf", "POST")
		require.True(t, allowed)
		assert.Equal(t, 3, info.Limit)
	}
	allowed, _ := limiter.Allow("c", "/download-pdf", "POST")
	assert.False(t, allowed)

	// other endpoints keep the default allowance
	allowed, info := limiter.Allow("c", "/resumes", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 100, info.Limit)
}

func TestLimiter_PrefixRuleSharesBucket(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:         true,
		EndpointConfigs: []EndpointConfig{{Path: "/resumes/", Method: "DELETE", Limit: 2, Window: time.Hour, Burst: 2}},
	})
	defer limiter.Stop()

	allowed, _ := limiter.Allow("c", "/resumes/a", "DELETE")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("c", "/resumes/b", "DELETE")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("c", "/resumes/c", "DELETE")
	assert.False(t, allowed)
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 20; i++ {
		allowed, _ := limiter.Allow("c", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_ClientsIsolated(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()

	allowed, _ := limiter.Allow("a", "/resumes", "GET")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("b", "/resumes", "GET")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("a", "/resumes", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Hour})
	defer limiter.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if ok, _ := limiter.Allow("shared", "/resumes", "GET"); ok {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, granted)
}

func TestLimiter_EvictIdle(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 5, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		limiter.Allow(fmt.Sprintf("client-%d", i), "/resumes", "GET")
	}
	assert.Equal(t, 0, limiter.evictIdle(time.Now().Add(-time.Minute)))
	assert.Equal(t, 3, limiter.evictIdle(time.Now().Add(time.Minute)))
}

func TestLimiter_StopIdempotent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 5, DefaultWindow: time.Minute, CleanupInterval: time.Millisecond})
	limiter.Stop()
	limiter.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		path, method string
		wantPath     string
		wantNil      bool
	}{
		{"/parse-resume", "POST", "/parse-resume", false},
		{"/download-pdf", "POST", "/download-pdf", false},
		{"/resumes", "POST", "/resumes", false},
		{"/resumes/cleanup", "POST", "/resumes/cleanup", false},
		{"/resumes/123", "PATCH", "/resumes/", false},
		{"/resumes/123", "DELETE", "/resumes/", false},
		{"/resumes/123", "GET", "", true},
		{"/resumes", "GET", "", true},
		{"/health", "GET", "/health", false},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantPath, got.Path)
		})
	}

	assert.Equal(t, 0, MatchEndpoint("/health", "GET", configs).Limit)
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(42, 30*time.Second, []string{"10.0.0.1", " 10.0.0.2 ", ""}, nil)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.True(t, cfg.Whitelist["10.0.0.2"])
	assert.Len(t, cfg.Whitelist, 2)
	assert.Empty(t, cfg.Blacklist)
	assert.NotEmpty(t, cfg.EndpointConfigs)

	defaults := NewConfig(0, -time.Second, nil, nil)
	assert.Equal(t, DefaultLimit, defaults.DefaultLimit)
	assert.Equal(t, DefaultWindow, defaults.DefaultWindow)

	assert.False(t, Disabled().Enabled)
}
