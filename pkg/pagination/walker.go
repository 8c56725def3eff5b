package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gadwant/codacy-report/pkg/codacy"
)

// ErrPageLimit is returned when the walk exceeds the configured maximum
// page count before reaching a terminal page.
var ErrPageLimit = errors.New("page limit exceeded")

// PageFetcher fetches a single page of the issue search for a cursor.
// An empty cursor requests the first page.
type PageFetcher interface {
	SearchIssues(ctx context.Context, cursor string) (*codacy.Page, error)
}

// Config holds walker configuration.
type Config struct {
	// MaxPages caps the number of pages fetched. A misbehaving server
	// that keeps returning non-empty pages with fresh cursors would
	// otherwise iterate without bound.
	MaxPages int

	// Budget is the wall-clock allowance for the whole walk.
	Budget time.Duration
}

// DefaultConfig returns safe default bounds.
func DefaultConfig() Config {
	return Config{
		MaxPages: 1000,
		Budget:   10 * time.Minute,
	}
}

// Walker performs the sequential cursor walk over the issue search
// endpoint, accumulating every issue across pages.
type Walker struct {
	fetcher PageFetcher
	config  Config
}

// NewWalker creates a new walker over the given fetcher.
func NewWalker(fetcher PageFetcher, config Config) *Walker {
	if config.MaxPages <= 0 {
		config.MaxPages = 1000
	}
	if config.Budget <= 0 {
		config.Budget = 10 * time.Minute
	}

	return &Walker{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll walks pages until the server reports no further cursor or
// returns an empty page, whichever comes first. The empty-page check
// guards against servers that repeat a cursor on the final page. Issues
// are accumulated in page order then in-page order. Any fetch error
// aborts the walk and discards partial results.
func (w *Walker) FetchAll(ctx context.Context) ([]codacy.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, w.config.Budget)
	defer cancel()

	start := time.Now()

	var issues []codacy.Issue
	cursor := ""

	for page := 1; ; page++ {
		if page > w.config.MaxPages {
			return nil, fmt.Errorf("%w after %d pages", ErrPageLimit, w.config.MaxPages)
		}

		result, err := w.fetcher.SearchIssues(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}

		issues = append(issues, result.Issues...)

		log.Info().
			Int("page", page).
			Int("page_issues", len(result.Issues)).
			Int("total_issues", len(issues)).
			Bool("has_next", result.NextCursor != "").
			Msg("Fetched page")

		if result.NextCursor == "" || len(result.Issues) == 0 {
			break
		}

		cursor = result.NextCursor
	}

	log.Info().
		Int("total_issues", len(issues)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return issues, nil
}
