// Command codacy-report walks the Codacy issue search endpoint for one
// repository, prints a severity-classified report, and saves a JSON
// snapshot of every issue found.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/gadwant/codacy-report/pkg/cache"
	"github.com/gadwant/codacy-report/pkg/codacy"
	"github.com/gadwant/codacy-report/pkg/config"
	"github.com/gadwant/codacy-report/pkg/logging"
	"github.com/gadwant/codacy-report/pkg/pagination"
	"github.com/gadwant/codacy-report/pkg/ratelimit"
	"github.com/gadwant/codacy-report/pkg/report"
	"github.com/gadwant/codacy-report/pkg/snapshot"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// options holds the CLI flag values. Zero values defer to the resolved
// configuration.
type options struct {
	envFile  string
	limit    int
	maxPages int
	budget   time.Duration
	output   string
	baseURL  string
	debug    bool
	pretty   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "codacy-report",
		Short: "Fetch and report Codacy issues for a repository",
		Long: "codacy-report walks the paginated Codacy issue search endpoint,\n" +
			"classifies every issue by severity, prints a report, and saves a\n" +
			"JSON snapshot.\n\n" +
			"Required configuration (environment or --env-file overlay):\n" +
			"  " + config.EnvAPIToken + ", " + config.EnvProvider + ",\n" +
			"  " + config.EnvUsername + ", " + config.EnvProjectName,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd.Context(), cmd.OutOrStdout(), opts)
			if err != nil {
				// Diagnostics go to stdout, like the report itself.
				fmt.Fprintf(cmd.OutOrStdout(), "Error: %v\n", err)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "path of the key=value overlay file")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "page size (default from "+config.EnvPageLimit+")")
	cmd.Flags().IntVar(&opts.maxPages, "max-pages", 0, "maximum pages to fetch (default from "+config.EnvMaxPages+")")
	cmd.Flags().DurationVar(&opts.budget, "budget", 0, "wall-clock budget for the fetch (default from "+config.EnvFetchBudget+")")
	cmd.Flags().StringVar(&opts.output, "output", snapshot.DefaultFilename, "snapshot artifact path")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "human-readable log output")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "override the Codacy API base URL")
	_ = cmd.Flags().MarkHidden("base-url")

	return cmd
}

var separator = strings.Repeat("=", 60)

// run executes the whole pipeline: resolve config, walk pages, classify,
// render, snapshot.
func run(ctx context.Context, out io.Writer, opts *options) error {
	resolver := config.NewResolver(nil)
	if err := resolver.LoadOverlay(opts.envFile); err != nil {
		return err
	}
	cfg, err := resolver.Resolve()
	if err != nil {
		return err
	}

	level := logging.LogLevel(cfg.LogLevel)
	if opts.debug {
		level = logging.LevelDebug
	}
	logging.Setup(logging.Config{Level: level, Pretty: opts.pretty, Output: os.Stderr})

	// Explicit flags win over resolved configuration.
	if opts.limit > 0 {
		cfg.PageLimit = opts.limit
	}
	if opts.maxPages > 0 {
		cfg.MaxPages = opts.maxPages
	}
	if opts.budget > 0 {
		cfg.FetchBudget = opts.budget
	}

	clientCfg := codacy.DefaultConfig(cfg.APIToken, cfg.Provider, cfg.Username, cfg.ProjectName)
	clientCfg.PageLimit = cfg.PageLimit
	clientCfg.Pacer = ratelimit.NewPacer(0, logging.NewLogger("pacer"))
	if opts.baseURL != "" {
		clientCfg.BaseURL = opts.baseURL
	}
	if cfg.RedisAddr != "" {
		clientCfg.Cache = newPageCache(ctx, cfg)
	}

	client, err := codacy.New(clientCfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Fetching issues for %s/%s/%s...\n", cfg.Provider, cfg.Username, cfg.ProjectName)
	fmt.Fprintln(out, separator)

	walker := pagination.NewWalker(client, pagination.Config{
		MaxPages: cfg.MaxPages,
		Budget:   cfg.FetchBudget,
	})
	issues, err := walker.FetchAll(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal issues found: %d\n", len(issues))
	fmt.Fprintln(out, separator)

	if len(issues) == 0 {
		fmt.Fprintln(out, "🎉 No issues found! Your code is clean.")
		return nil
	}

	summary := report.Summarize(issues)
	fmt.Fprintf(out, "\n❌ Errors: %d\n", summary.Errors)
	fmt.Fprintf(out, "⚠️  Warnings: %d\n", summary.Warnings)
	fmt.Fprintf(out, "ℹ️  Info: %d\n\n", summary.Infos)

	if err := report.Render(out, issues); err != nil {
		return err
	}

	writer := snapshot.NewWriter(opts.output)
	if err := writer.Write(issues); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nSaved all issues to: %s\n", writer.Path())

	return nil
}

// newPageCache connects the optional Redis page cache. An unreachable
// Redis disables caching instead of failing the run.
func newPageCache(ctx context.Context, cfg *config.Config) *cache.Manager {
	logger := logging.NewLogger("cache")

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable - page cache disabled")
		client.Close()
		return nil
	}

	logger.Debug().Str("addr", cfg.RedisAddr).Msg("Page cache enabled")
	return cache.NewManager(client, cfg.CacheTTL)
}
