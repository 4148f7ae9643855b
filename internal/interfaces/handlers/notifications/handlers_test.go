package notifications

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	notificationsvc "shares-backend/internal/application/notifications"
	"shares-backend/internal/domain"
	"shares-backend/internal/testutil"
)

func seed(t *testing.T, db *gorm.DB, userID uuid.UUID, read bool) *domain.Notification {
	t.Helper()
	n := &domain.Notification{UserID: userID, Event: domain.NotificationSharesRequestUpdated, Title: "t", Message: "m", IsRead: read}
	require.NoError(t, db.Create(n).Error)
	return n
}

func TestNotificationsFlow(t *testing.T) {
	db := testutil.NewDB(t)
	userID := uuid.New()
	mine := seed(t, db, userID, false)
	seed(t, db, userID, false)
	seed(t, db, userID, true)
	theirs := seed(t, db, uuid.New(), false)

	h := &Handlers{Service: &notificationsvc.Service{DB: db}}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{"user_id": userID.String(), "role": "investor"})
		return c.Next()
	})
	app.Get("/notifications", h.List)
	app.Patch("/notifications/read-all", h.MarkAllRead)
	app.Patch("/notifications/:id/read", h.MarkRead)

	total := func(target string) int64 {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)
		var out struct {
			Metadata struct {
				Total int64 `json:"total"`
			} `json:"metadata"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out.Metadata.Total
	}
	assert.Equal(t, int64(3), total("/notifications"))
	assert.Equal(t, int64(2), total("/notifications?isRead=false"))

	resp, err := app.Test(httptest.NewRequest("PATCH", "/notifications/"+mine.ID.String()+"/read", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, int64(1), total("/notifications?isRead=false"))

	resp, err = app.Test(httptest.NewRequest("PATCH", "/notifications/"+theirs.ID.String()+"/read", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("PATCH", "/notifications/read-all", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, int64(0), total("/notifications?isRead=false"))

	resp, err = app.Test(httptest.NewRequest("GET", "/notifications?isRead=maybe", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
