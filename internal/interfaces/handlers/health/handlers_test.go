package health

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	healthsvc "shares-backend/internal/application/health"
)

type okDB struct{}

func (okDB) PingContext(context.Context) error { return nil }

func setup(t *testing.T, db healthsvc.DBPinger) (*fiber.App, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	h := &Handlers{Rdb: rdb, DB: db, HealthAdminKey: "secret"}
	app := fiber.New()
	app.Get("/", h.Root)
	app.Get("/health", h.JSON)
	app.Get("/health/errors", h.Errors)
	app.Post("/health/reset", h.Reset)
	return app, rdb
}

func TestHealthJSON(t *testing.T) {
	app, _ := setup(t, okDB{})
	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "shares-backend", out["service"])
}

func TestHealthJSONWithoutDatabase(t *testing.T) {
	app, _ := setup(t, nil)
	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestAdminEndpointsRequireKey(t *testing.T) {
	app, rdb := setup(t, okDB{})

	resp, err := app.Test(httptest.NewRequest("GET", "/health/errors", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/health/reset?key=wrong", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	require.NoError(t, rdb.Set(context.Background(), healthsvc.KeyReqTotal, "12", 0).Err())
	resp, err = app.Test(httptest.NewRequest("POST", "/health/reset?key=secret", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(0), rdb.Exists(context.Background(), healthsvc.KeyReqTotal).Val())
}

func TestErrorsReturnsLoggedEntries(t *testing.T) {
	app, rdb := setup(t, okDB{})
	require.NoError(t, rdb.LPush(context.Background(), healthsvc.KeyErrorLog, `{"message":"boom","path":"/x"}`).Err())

	resp, err := app.Test(httptest.NewRequest("GET", "/health/errors?key=secret", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Data, 1)
	assert.Equal(t, "boom", out.Data[0]["message"])
}
