package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/onnride/vehicle-rental/internal/config"
)

func cacheCtx(target, routePattern string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath(routePattern)
	return c
}

func TestCacheKeyPerConcreteURL(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "path_query"}
	pattern := "/v1/vehicles/:id/availability"
	query := "?location=downtown&start=2026-09-01T10:00:00Z&end=2026-09-01T14:00:00Z"

	a := cacheKeyFrom(cfg, cacheCtx("/v1/vehicles/vehicle-a/availability"+query, pattern))
	b := cacheKeyFrom(cfg, cacheCtx("/v1/vehicles/vehicle-b/availability"+query, pattern))

	// Two vehicles sharing a route pattern must not share an entry.
	assert.NotEqual(t, a, b)

	again := cacheKeyFrom(cfg, cacheCtx("/v1/vehicles/vehicle-a/availability"+query, pattern))
	assert.Equal(t, a, again)
}

func TestCacheKeyIncludesQuery(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "path_query"}
	pattern := "/v1/vehicles/:id/availability"

	morning := cacheKeyFrom(cfg, cacheCtx("/v1/vehicles/v1/availability?start=2026-09-01T08:00:00Z&end=2026-09-01T12:00:00Z", pattern))
	evening := cacheKeyFrom(cfg, cacheCtx("/v1/vehicles/v1/availability?start=2026-09-01T18:00:00Z&end=2026-09-01T22:00:00Z", pattern))

	assert.NotEqual(t, morning, evening)
}

func TestCacheKeyStrategies(t *testing.T) {
	pattern := "/v1/vehicles/:id"
	target := "/v1/vehicles/v1?foo=bar"

	// "path" ignores the query string.
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "path"}
	withQuery := cacheKeyFrom(cfg, cacheCtx(target, pattern))
	withoutQuery := cacheKeyFrom(cfg, cacheCtx("/v1/vehicles/v1", pattern))
	assert.Equal(t, withQuery, withoutQuery)

	cfg.KeyStrategy = "path_query"
	assert.NotEqual(t,
		cacheKeyFrom(cfg, cacheCtx(target, pattern)),
		cacheKeyFrom(cfg, cacheCtx("/v1/vehicles/v1", pattern)))
}

func TestCacheDisabledPassesThrough(t *testing.T) {
	mw := NewRedisCache(config.CacheConfig{Enabled: false}, nil)

	called := false
	handler := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	err := handler(cacheCtx("/v1/vehicles", "/v1/vehicles"))
	assert.NoError(t, err)
	assert.True(t, called)
}
