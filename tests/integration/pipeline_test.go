package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gadwant/codacy-report/internal/testutil"
	"github.com/gadwant/codacy-report/pkg/cache"
	"github.com/gadwant/codacy-report/pkg/codacy"
	"github.com/gadwant/codacy-report/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// newTestClient builds a client against the mock server, optionally with a
// Redis-backed page cache.
func newTestClient(t *testing.T, mock *testutil.MockCodacy, manager *cache.Manager) *codacy.Client {
	t.Helper()

	cfg := codacy.DefaultConfig("test-token", "gh", "acme", "widgets")
	cfg.BaseURL = mock.URL()
	cfg.Retry = codacy.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        50 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	cfg.Cache = manager

	client, err := codacy.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

// TestWalkWithPageCache walks two pages through the full stack and verifies
// the second walk is served entirely from Redis.
func TestWalkWithPageCache(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockCodacy()
	defer mock.Close()

	mock.Queue(
		testutil.NewIssuesPage("c1",
			testutil.IssueJSON("a.go", 1, "Error", "Bad call", "err dropped"),
			testutil.IssueJSON("b.go", 2, "Warning", "Shadowed", "var shadowed"),
		),
		testutil.NewIssuesPage("",
			testutil.IssueJSON("c.go", 3, "Info", "Note", "style nit"),
		),
	)

	manager := cache.NewManager(redisClient, time.Minute)
	client := newTestClient(t, mock, manager)
	walker := pagination.NewWalker(client, pagination.DefaultConfig())

	ctx := context.Background()

	// Walk 1: cache misses, both pages hit the API.
	issues, err := walker.FetchAll(ctx)
	if err != nil {
		t.Fatalf("First walk failed: %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("First walk issues = %d, want 3", len(issues))
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("After walk 1: API requests = %d, want 2", mock.GetRequestCount())
	}

	// Walk 2: both pages come from the cache, no new API calls.
	issues2, err := walker.FetchAll(ctx)
	if err != nil {
		t.Fatalf("Second walk failed: %v", err)
	}
	if len(issues2) != 3 {
		t.Fatalf("Second walk issues = %d, want 3", len(issues2))
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("After walk 2: API requests = %d, want 2 (cache)", mock.GetRequestCount())
	}

	// The cached bytes are the verbatim response bodies.
	key := cache.Key{Provider: "gh", Organization: "acme", Repository: "widgets", Limit: codacy.DefaultPageLimit}
	entry, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Cache lookup failed: %v", err)
	}
	if entry.IsExpired() {
		t.Error("Fresh entry reported expired")
	}
}

// TestWalkRecoversFromTransientServerError exercises retry across the stack:
// the first attempt of page one fails with 500, the retry succeeds, and the
// walk completes.
func TestWalkRecoversFromTransientServerError(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockCodacy()
	defer mock.Close()

	mock.Queue(
		testutil.NewServerErrorResponse(),
		testutil.NewIssuesPage("",
			testutil.IssueJSON("a.go", 1, "Error", "Bad call", "err dropped"),
		),
	)

	manager := cache.NewManager(redisClient, time.Minute)
	client := newTestClient(t, mock, manager)
	walker := pagination.NewWalker(client, pagination.DefaultConfig())

	issues, err := walker.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("Walk failed after retry: %v", err)
	}
	if len(issues) != 1 {
		t.Errorf("Issues = %d, want 1", len(issues))
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("API requests = %d, want 2 (one failure, one retry)", mock.GetRequestCount())
	}

	// The failed attempt must not have been cached.
	key := cache.Key{Provider: "gh", Organization: "acme", Repository: "widgets", Limit: codacy.DefaultPageLimit}
	entry, err := manager.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Cache lookup failed: %v", err)
	}
	page, decodeErr := decodeIssueCount(entry.Data)
	if decodeErr != nil {
		t.Fatalf("Cached body undecodable: %v", decodeErr)
	}
	if page != 1 {
		t.Errorf("Cached page issues = %d, want 1", page)
	}
}

// TestCacheDegradationFallsBackToAPI closes Redis mid-run and verifies the
// walk still completes against the live API.
func TestCacheDegradationFallsBackToAPI(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockCodacy()
	defer mock.Close()

	mock.Queue(
		testutil.NewIssuesPage("",
			testutil.IssueJSON("a.go", 1, "Warning", "Shadowed", "var shadowed"),
		),
	)

	manager := cache.NewManager(redisClient, time.Minute)
	client := newTestClient(t, mock, manager)

	// Sever the Redis connection before the first request.
	redisClient.Close()

	walker := pagination.NewWalker(client, pagination.DefaultConfig())
	issues, err := walker.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("Walk failed with degraded cache: %v", err)
	}
	if len(issues) != 1 {
		t.Errorf("Issues = %d, want 1", len(issues))
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("API requests = %d, want 1", mock.GetRequestCount())
	}
}

// decodeIssueCount counts the issues in a raw search response body.
func decodeIssueCount(body []byte) (int, error) {
	var resp struct {
		Data []codacy.Issue `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, err
	}
	return len(resp.Data), nil
}
