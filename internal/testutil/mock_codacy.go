// Package testutil provides testing utilities for the codacy-report
// pipeline.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for one scripted search response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCodacy is a configurable mock Codacy API server for testing. It
// serves scripted responses in order; once the script is exhausted it
// serves an empty final page.
type MockCodacy struct {
	server  *httptest.Server
	mu      sync.RWMutex
	script  []MockResponse
	next    int
	handler http.HandlerFunc

	// Tracking
	RequestCount int
	Cursors      []string
	LastHeader   http.Header
}

// NewMockCodacy creates a new mock Codacy API server.
func NewMockCodacy() *MockCodacy {
	mock := &MockCodacy{}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Cursors = append(mock.Cursors, r.URL.Query().Get("cursor"))
		mock.LastHeader = r.Header.Clone()
		handler := mock.handler
		mock.mu.Unlock()

		if handler != nil {
			handler(w, r)
			return
		}

		mock.serveScripted(w)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCodacy) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCodacy) Close() {
	m.server.Close()
}

// Reset clears the script and all tracking counters.
func (m *MockCodacy) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = nil
	m.next = 0
	m.RequestCount = 0
	m.Cursors = nil
	m.LastHeader = nil
}

// Queue appends responses to the script, served in order.
func (m *MockCodacy) Queue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, responses...)
}

// SetHandler installs a custom handler, bypassing the script.
func (m *MockCodacy) SetHandler(handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCodacy) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// serveScripted serves the next scripted response, or an empty final page
// when the script is exhausted.
func (m *MockCodacy) serveScripted(w http.ResponseWriter) {
	m.mu.Lock()
	var resp MockResponse
	if m.next < len(m.script) {
		resp = m.script[m.next]
		m.next++
	} else {
		resp = NewIssuesPage("")
	}
	m.mu.Unlock()

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}

	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// IssueJSON builds one raw issue object for a page body.
func IssueJSON(filePath string, line int, level, title, message string) string {
	obj := map[string]any{
		"filePath":    filePath,
		"lineNumber":  line,
		"level":       level,
		"patternInfo": map[string]any{"title": title},
		"message":     message,
	}
	data, _ := json.Marshal(obj)
	return string(data)
}

// PageBody builds a search response body with the given next cursor
// (empty = last page) and raw issue objects.
func PageBody(nextCursor string, issues ...string) string {
	body := `{"data":[`
	for i, issue := range issues {
		if i > 0 {
			body += ","
		}
		body += issue
	}
	body += `],"pagination":{`
	if nextCursor != "" {
		body += `"cursor":` + mustMarshalString(nextCursor)
	}
	body += `}}`
	return body
}

func mustMarshalString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// NewIssuesPage creates a 200 OK search response with the given cursor
// and issues.
func NewIssuesPage(nextCursor string, issues ...string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       PageBody(nextCursor, issues...),
	}
}

// NewUnauthorizedResponse creates a 401 response.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error":"invalid api token"}`,
	}
}

// NewRateLimitResponse creates a 429 response with a Retry-After hint.
func NewRateLimitResponse(retryAfterSeconds string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":"rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After": retryAfterSeconds,
		},
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":"internal server error"}`,
	}
}
