package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"questmart/internal/repository"
	"questmart/internal/service"
	"questmart/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	aliceAuth = "Telegram user=%7B%22id%22%3A42%2C%22username%22%3A%22alice%22%7D&auth_date=1700000000"
	bobAuth   = "Telegram user=%7B%22id%22%3A7%2C%22username%22%3A%22bob%22%7D&auth_date=1700000000"
)

type testServer struct {
	router *gin.Engine
	hub    *Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	quests, err := repository.LoadQuestCatalog("")
	require.NoError(t, err)
	catalog, err := service.NewQuestCatalog(quests)
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	ledger := service.NewUserLedger(store, service.DefaultLevelPolicy(), service.LedgerConfig{StartingBalance: 100, StartingLevel: 1})
	tracker := service.NewProgressTracker(store, catalog)
	hub := NewHub()
	rewards := service.NewRewardEngine(store, ledger, tracker, catalog, hub, zap.NewNop())
	svc := service.NewService(ledger, catalog, tracker, rewards, service.NewLeaderboardRanker(ledger))
	a := auth.NewTelegramAuth("", true)

	router := gin.New()
	v1 := router.Group("/api/v1")
	NewUserRoutes(v1, svc, a)
	NewQuestRoutes(v1, svc.Rewards, svc.Catalog, svc.Projector, a)
	NewLeaderboardRoutes(v1, svc.Leaderboard)
	NewNotificationRoutes(v1, hub, a)

	return &testServer{router: router, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, authHeader string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) register(t *testing.T, authHeader, name string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/users", authHeader, gin.H{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestUserRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/users", "", gin.H{"name": "alice"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/users", aliceAuth, gin.H{"name": "alice", "interests": []string{"gaming"}})
	require.Equal(t, http.StatusCreated, w.Code)
	user := decode[map[string]any](t, w)
	assert.Equal(t, "42", user["id"])
	assert.Equal(t, "A", user["avatar"])
	assert.EqualValues(t, 100, user["quest_coins"])
	assert.EqualValues(t, 1, user["level"])

	w = s.do(t, http.MethodPost, "/api/v1/users", aliceAuth, gin.H{"name": "alice"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/users", bobAuth, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/users/42", aliceAuth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[map[string]any](t, w)
	assert.EqualValues(t, 0, profile["quests_completed"])

	w = s.do(t, http.MethodGet, "/api/v1/users/99", aliceAuth, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/users/42/wallet", bobAuth, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/users/42/wallet", aliceAuth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	wallet := decode[map[string]any](t, w)
	assert.EqualValues(t, 100, wallet["quest_coins"])
}

func TestQuestCatalogRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/quests", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 9)

	w = s.do(t, http.MethodGet, "/api/v1/quests?type=social", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	social := decode[[]map[string]any](t, w)
	require.Len(t, social, 2)
	assert.Equal(t, "3", social[0]["id"])
	assert.Equal(t, "6", social[1]["id"])

	w = s.do(t, http.MethodGet, "/api/v1/quests?sort=reward&order=desc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sorted := decode[[]map[string]any](t, w)
	assert.Equal(t, "7", sorted[0]["id"])
	assert.Equal(t, "1", sorted[len(sorted)-1]["id"])

	w = s.do(t, http.MethodGet, "/api/v1/quests?type=monthly", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/quests/featured", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 3)

	w = s.do(t, http.MethodGet, "/api/v1/quests/4", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 200, decode[map[string]any](t, w)["reward"])

	w = s.do(t, http.MethodGet, "/api/v1/quests/99", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuestLifecycleRoutes(t *testing.T) {
	s := newTestServer(t)
	s.register(t, aliceAuth, "alice")
	s.register(t, bobAuth, "bob")

	w := s.do(t, http.MethodPost, "/api/v1/users/42/quests/1/complete", aliceAuth, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/users/42/quests/1/start", bobAuth, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/users/42/quests/1/start", aliceAuth, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "in_progress", decode[map[string]any](t, w)["state"])

	w = s.do(t, http.MethodPost, "/api/v1/users/42/quests/1/start", aliceAuth, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.NotNil(t, decode[map[string]any](t, w)["progress"])

	w = s.do(t, http.MethodPatch, "/api/v1/users/42/quests/1/progress", aliceAuth, gin.H{"progress": 30})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 30, decode[map[string]any](t, w)["progress"])

	w = s.do(t, http.MethodPatch, "/api/v1/users/42/quests/1/progress", aliceAuth, gin.H{"progress": 10})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/users/42/quests/1/progress", aliceAuth, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/users/42/quests/1/complete", aliceAuth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[service.CompletionResult](t, w)
	assert.True(t, res.Granted)
	assert.Equal(t, int64(150), res.NewBalance)

	w = s.do(t, http.MethodPost, "/api/v1/users/42/quests/1/complete", aliceAuth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[service.CompletionResult](t, w)
	assert.False(t, res.Granted)
	assert.Equal(t, int64(150), res.NewBalance)

	w = s.do(t, http.MethodGet, "/api/v1/users/42/quests/completed", bobAuth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	completed := decode[[]map[string]any](t, w)
	require.Len(t, completed, 1)
	assert.Equal(t, "1", completed[0]["id"])

	w = s.do(t, http.MethodGet, "/api/v1/users/42/quests?type=daily", aliceAuth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	views := decode[[]map[string]any](t, w)
	require.NotEmpty(t, views)
	first := views[0]["progress"].(map[string]any)
	assert.Equal(t, "completed", first["state"])

	w = s.do(t, http.MethodGet, "/api/v1/leaderboard?metric=questCoins&direction=desc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[struct {
		Metric  string `json:"metric"`
		Entries []struct {
			Rank   int    `json:"rank"`
			UserID string `json:"user_id"`
		} `json:"entries"`
	}](t, w)
	assert.Equal(t, "questCoins", board.Metric)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "42", board.Entries[0].UserID)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, "7", board.Entries[1].UserID)

	w = s.do(t, http.MethodGet, "/api/v1/leaderboard?limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string]any](t, w)["entries"], 1)

	w = s.do(t, http.MethodGet, "/api/v1/leaderboard?metric=xp", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/leaderboard?limit=-2", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationRoutes(t *testing.T) {
	s := newTestServer(t)
	s.register(t, aliceAuth, "alice")

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/42"
	header := http.Header{}
	header.Set("Authorization", aliceAuth)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Authorization": []string{bobAuth}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool {
		return s.hub.Subscribers("42") == 1
	}, time.Second, 10*time.Millisecond)

	w := s.do(t, http.MethodPost, "/api/v1/users/42/quests/3/start", aliceAuth, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/users/42/quests/3/complete", aliceAuth, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg service.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, service.MessageQuestCompleted, msg.Type)
	assert.Equal(t, "3", msg.Payload["quest_id"])
	assert.EqualValues(t, 250, msg.Payload["new_balance"])

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return s.hub.Subscribers("42") == 0
	}, time.Second, 10*time.Millisecond)
}
