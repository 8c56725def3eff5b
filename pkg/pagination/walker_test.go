package pagination

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gadwant/codacy-report/pkg/codacy"
)

// stubFetcher serves scripted pages in order.
type stubFetcher struct {
	pages []*codacy.Page
	err   error
	calls int
	delay time.Duration
}

func (s *stubFetcher) SearchIssues(ctx context.Context, cursor string) (*codacy.Page, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.calls > len(s.pages) {
		return &codacy.Page{}, nil
	}
	return s.pages[s.calls-1], nil
}

func issuesNamed(paths ...string) []codacy.Issue {
	issues := make([]codacy.Issue, len(paths))
	for i, p := range paths {
		issues[i] = codacy.Issue{FilePath: p, Level: "Error"}
	}
	return issues
}

func TestFetchAll_AccumulatesAcrossPages(t *testing.T) {
	fetcher := &stubFetcher{pages: []*codacy.Page{
		{Issues: issuesNamed("a.go", "b.go"), NextCursor: "c1"},
		{Issues: issuesNamed("c.go"), NextCursor: "c2"},
		{Issues: issuesNamed("d.go", "e.go", "f.go")}, // no cursor: terminal
	}}

	walker := NewWalker(fetcher, DefaultConfig())
	issues, err := walker.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	if len(issues) != 6 {
		t.Fatalf("issues = %d, want 6 (sum of page counts)", len(issues))
	}

	// Page order, then in-page order.
	want := []string{"a.go", "b.go", "c.go", "d.go", "e.go", "f.go"}
	for i, path := range want {
		if issues[i].FilePath != path {
			t.Errorf("issues[%d] = %q, want %q", i, issues[i].FilePath, path)
		}
	}
	if fetcher.calls != 3 {
		t.Errorf("calls = %d, want 3", fetcher.calls)
	}
}

func TestFetchAll_StopsOnAbsentCursor(t *testing.T) {
	fetcher := &stubFetcher{pages: []*codacy.Page{
		{Issues: issuesNamed("a.go"), NextCursor: "c1"},
		{Issues: issuesNamed("b.go")},
	}}

	walker := NewWalker(fetcher, DefaultConfig())
	if _, err := walker.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	if fetcher.calls != 2 {
		t.Errorf("calls = %d, want exactly 2", fetcher.calls)
	}
}

func TestFetchAll_EmptyPageWithRepeatedCursorIsTerminal(t *testing.T) {
	// A server that erroneously repeats the cursor on an empty final page
	// must not loop forever.
	fetcher := &stubFetcher{pages: []*codacy.Page{
		{Issues: issuesNamed("a.go", "b.go"), NextCursor: "c1"},
		{Issues: nil, NextCursor: "c1"},
	}}

	walker := NewWalker(fetcher, DefaultConfig())
	issues, err := walker.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	if len(issues) != 2 {
		t.Errorf("issues = %d, want 2", len(issues))
	}
	if fetcher.calls != 2 {
		t.Errorf("calls = %d, want 2", fetcher.calls)
	}
}

func TestFetchAll_EmptyFirstPage(t *testing.T) {
	fetcher := &stubFetcher{pages: []*codacy.Page{{}}}

	walker := NewWalker(fetcher, DefaultConfig())
	issues, err := walker.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	if len(issues) != 0 {
		t.Errorf("issues = %d, want 0", len(issues))
	}
	if fetcher.calls != 1 {
		t.Errorf("calls = %d, want 1", fetcher.calls)
	}
}

func TestFetchAll_FetchErrorDiscardsPartialResults(t *testing.T) {
	fetchErr := errors.New("boom")
	fetcher := &stubFetcher{err: fetchErr}

	walker := NewWalker(fetcher, DefaultConfig())
	issues, err := walker.FetchAll(context.Background())

	if !errors.Is(err, fetchErr) {
		t.Fatalf("error = %v, want wrapped fetch error", err)
	}
	if issues != nil {
		t.Errorf("issues = %v, want nil on failure", issues)
	}
}

func TestFetchAll_PageLimit(t *testing.T) {
	// Misbehaving server: always a fresh cursor with a non-empty page.
	fetcher := &stubFetcher{}
	endless := make([]*codacy.Page, 10)
	for i := range endless {
		endless[i] = &codacy.Page{Issues: issuesNamed("x.go"), NextCursor: "more"}
	}
	fetcher.pages = endless

	walker := NewWalker(fetcher, Config{MaxPages: 3, Budget: time.Minute})
	_, err := walker.FetchAll(context.Background())

	if !errors.Is(err, ErrPageLimit) {
		t.Fatalf("error = %v, want ErrPageLimit", err)
	}
	if fetcher.calls != 3 {
		t.Errorf("calls = %d, want 3", fetcher.calls)
	}
}

func TestFetchAll_BudgetExpires(t *testing.T) {
	fetcher := &stubFetcher{delay: 20 * time.Millisecond}
	endless := make([]*codacy.Page, 100)
	for i := range endless {
		endless[i] = &codacy.Page{Issues: issuesNamed("x.go"), NextCursor: "more"}
	}
	fetcher.pages = endless

	walker := NewWalker(fetcher, Config{MaxPages: 100, Budget: 30 * time.Millisecond})
	_, err := walker.FetchAll(context.Background())

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestNewWalker_Defaults(t *testing.T) {
	walker := NewWalker(&stubFetcher{}, Config{})

	if walker.config.MaxPages <= 0 {
		t.Error("MaxPages default should be positive")
	}
	if walker.config.Budget <= 0 {
		t.Error("Budget default should be positive")
	}
}
