package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTelegramData(t *testing.T) {
	tests := []struct {
		name     string
		initData string
		wantErr  bool
		wantID   int64
		wantName string
	}{
		{
			name:     "valid",
			initData: "user=%7B%22id%22%3A42%2C%22username%22%3A%22alice%22%7D&auth_date=1700000000",
			wantID:   42,
			wantName: "alice",
		},
		{
			name:     "missing auth date",
			initData: "user=%7B%22id%22%3A42%7D",
			wantErr:  true,
		},
		{
			name:     "missing user id",
			initData: "user=%7B%22username%22%3A%22alice%22%7D&auth_date=1700000000",
			wantErr:  true,
		},
		{
			name:     "malformed user",
			initData: "user=not-json&auth_date=1700000000",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ExtractTelegramData(tt.initData)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, data.ID)
			assert.Equal(t, tt.wantName, data.Username)
			assert.Equal(t, "42", data.UserID())
			assert.Equal(t, time.Unix(1700000000, 0).UTC(), data.AuthDate)
		})
	}
}

func TestTelegramAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		auth       *TelegramAuth
		header     string
		wantStatus int
	}{
		{name: "missing header", auth: NewTelegramAuth("", true), wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", auth: NewTelegramAuth("", true), header: "Bearer abc", wantStatus: http.StatusUnauthorized},
		{
			name:       "debug mode skips signature",
			auth:       NewTelegramAuth("", true),
			header:     "Telegram user=%7B%22id%22%3A42%7D&auth_date=1700000000",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unsigned data rejected",
			auth:       NewTelegramAuth("bot-token", false),
			header:     "Telegram user=%7B%22id%22%3A42%7D&auth_date=1700000000",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/me", tt.auth.TelegramAuthMiddleware(), func(c *gin.Context) {
				u, ok := CurrentUser(c)
				require.True(t, ok)
				c.String(http.StatusOK, u.UserID())
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "42", w.Body.String())
			}
		})
	}
}
