package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatwatch-backend/config"
	"seatwatch-backend/internal/api"
	"seatwatch-backend/internal/checker"
	"seatwatch-backend/internal/db"
	"seatwatch-backend/internal/poller"
	"seatwatch-backend/internal/store"
	"seatwatch-backend/internal/watch"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Notify(ctx context.Context, email, title string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, email+"|"+title)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// TestWatchLifecycle drives a watch through registration, polling,
// notification and re-registration against a fake registrar.
func TestWatchLifecycle(t *testing.T) {
	// --- Test Setup ---
	gin.SetMode(gin.TestMode)

	var openSeats atomic.Int32
	var upstreamCalls atomic.Int32
	registrar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls.Add(1)
		assert.Equal(t, "202510", r.URL.Query().Get("term"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		var resp checker.ApiResponse
		resp.Data.AvailableSeats = int(openSeats.Load())
		resp.Data.Title = "Intro to Systems - Lecture - CS301 - 002"
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer registrar.Close()

	cfg := &config.Config{
		Server: config.ServerConfig{
			RateLimitPerSec: 1000,
			RateLimitBurst:  1000,
			CacheTTLSeconds: 60,
			UserIDHeader:    "X-User-ID",
			UserEmailHeader: "X-User-Email",
		},
		Checker: config.CheckerConfig{
			URL:            registrar.URL,
			Headers:        map[string]string{"X-Api-Key": "secret"},
			TimeoutSeconds: 5,
		},
		Poller: config.PollerConfig{
			Enabled:              true,
			Interval:             time.Hour,
			CheckTimeoutSeconds:  5,
			NotifyTimeoutSeconds: 5,
		},
		Database: config.DatabaseConfig{
			Driver:          "sqlite",
			DSN:             fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
			MaxOpenConns:    1,
			ConnectAttempts: 1,
		},
	}
	cfg.WorkerPool.Size = 4

	gormDB, err := db.Init(&cfg.Database)
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	s := store.NewGormStore(gormDB)
	c := checker.NewHTTPChecker(cfg.Checker)
	notifier := &recordingNotifier{}
	p := poller.NewPoller(cfg, s, c, notifier)
	h := api.NewHandler(watch.NewService(s, c), s, c, s, nil, 5*time.Second)
	router := api.NewRouter(cfg.Server, h)

	register := func(email string) *httptest.ResponseRecorder {
		body := fmt.Sprintf(`{"email":%q,"crn":12345,"term":202510}`, email)
		req := httptest.NewRequest(http.MethodPost, "/api/watches", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}
	ctx := context.Background()

	// --- Step 1: three people watch a full section ---
	for _, email := range []string{"ada@example.com", "bob@example.com", "cy@example.com"} {
		require.Equal(t, http.StatusCreated, register(email).Code)
	}
	assert.Equal(t, http.StatusConflict, register("ada@example.com").Code)

	// --- Step 2: still full, nothing happens ---
	stats := p.PollOnce(ctx)
	assert.Equal(t, 3, stats.Watches)
	assert.Equal(t, 1, stats.Groups)
	assert.Equal(t, 0, notifier.count())

	// --- Step 3: two seats open, everyone is told ---
	openSeats.Store(2)
	calls := upstreamCalls.Load()
	stats = p.PollOnce(ctx)
	assert.Equal(t, 3, stats.Notified)
	assert.Equal(t, 3, notifier.count())
	assert.Equal(t, calls+1, upstreamCalls.Load(), "one upstream call per section")

	active, err := s.FindAllActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// --- Step 4: polling again is a no-op ---
	stats = p.PollOnce(ctx)
	assert.Equal(t, 0, stats.Watches)
	assert.Equal(t, 3, notifier.count())

	// --- Step 5: re-registration is rejected while seats are open, allowed once full ---
	w := register("ada@example.com")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	openSeats.Store(0)
	assert.Equal(t, http.StatusCreated, register("ada@example.com").Code)

	active, err = s.FindAllActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "ada@example.com", active[0].Email)
}
