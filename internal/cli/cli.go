package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kesurge.org/kesurge-web/internal/apiclient"
	"kesurge.org/kesurge-web/internal/config"
	"kesurge.org/kesurge-web/internal/status"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

const defaultProbeTimeout = 5 * time.Second

// ErrBackendDown is returned by the estado command when every probe failed.
var ErrBackendDown = errors.New("backend down")

// app carries the flag values shared by every command.
type app struct {
	apiURL  string
	format  string
	timeout time.Duration
	verbose bool

	out io.Writer
	err io.Writer
}

// Execute runs the CLI with args and returns the process exit code. Errors are printed to
// stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

// NewRootCmd creates the root command writing results to stdout and diagnostics to stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{out: stdout, err: stderr}
	cmd := &cobra.Command{
		Use:   "kesurge",
		Short: "Query the Kesurge places backend",
		Long: `A CLI client for the Kesurge places backend.
Lists places, categories and stats, triggers scraper runs and reports backend health.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.validate()
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.apiURL, "api", "", "Backend base URL (defaults to KESURGE_API_BASE_URL)")
	flags.StringVar(&a.format, "format", string(FormatText), "Output format: text or json")
	flags.DurationVar(&a.timeout, "timeout", 15*time.Second, "Request timeout (0 disables it)")
	flags.BoolVar(&a.verbose, "verbose", false, "Log backend requests to stderr")

	cmd.AddCommand(
		a.placesCmd(),
		a.placeCmd(),
		a.categoriesCmd(),
		a.statsCmd(),
		a.scraperCmd(),
		a.statusCmd(),
	)
	return cmd
}

func (a *app) validate() error {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(a.format)))
	if f != FormatText && f != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", a.format)
	}
	a.format = string(f)
	return nil
}

func (a *app) outputFormat() OutputFormat {
	return OutputFormat(a.format)
}

// client builds the API client from --api, falling back to the configured base URL.
func (a *app) client(ctx context.Context) (*apiclient.Client, error) {
	base := strings.TrimSpace(a.apiURL)
	if base == "" {
		cfg, err := config.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		base = cfg.API.BaseURL
	}
	opts := []apiclient.Option{apiclient.WithTimeout(a.timeout)}
	if a.verbose {
		logger, err := newStderrLogger()
		if err != nil {
			return nil, err
		}
		opts = append(opts, apiclient.WithLogger(logger))
	}
	c, err := apiclient.New(base, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return c, nil
}

func newStderrLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

func (a *app) placesCmd() *cobra.Command {
	var filters apiclient.PlaceFilters
	cmd := &cobra.Command{
		Use:   "lugares",
		Short: "List places",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			list, err := c.Places(cmd.Context(), filters)
			if err != nil {
				return fmt.Errorf("fetching places: %w", err)
			}
			return writePlaces(a.out, list, a.outputFormat())
		},
	}
	cmd.Flags().StringVar(&filters.Category, "categoria", "", "Category key")
	cmd.Flags().IntVar(&filters.Limit, "limite", 0, "Maximum number of places")
	cmd.Flags().StringVar(&filters.Order, "orden", "", "Sort order (e.g. rating)")
	return cmd
}

func (a *app) placeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lugar <id>",
		Short: "Show one place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 0 {
				return fmt.Errorf("invalid place id: %q", args[0])
			}
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			place, err := c.Place(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("fetching place %d: %w", id, err)
			}
			return writePlace(a.out, place, a.outputFormat())
		},
	}
}

func (a *app) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categorias",
		Short: "Count places per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			counts, err := c.Categories(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching categories: %w", err)
			}
			return writeCategories(a.out, counts, a.outputFormat())
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estadisticas",
		Short: "Show backend statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := c.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching stats: %w", err)
			}
			return writeStats(a.out, stats, a.outputFormat())
		},
	}
}

func (a *app) scraperCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "scraper",
		Short: "Trigger a scraping run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			if a.verbose {
				fmt.Fprintf(a.err, "Running scraper (categoria=%q)\n", category)
			}
			result, err := c.RunScraper(cmd.Context(), category)
			if err != nil {
				return fmt.Errorf("running scraper: %w", err)
			}
			return writeScraper(a.out, result, a.outputFormat())
		},
	}
	cmd.Flags().StringVar(&category, "categoria", "", "Limit the run to one category")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estado",
		Short: "Probe backend health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := status.NewChecker(c, defaultProbeTimeout).Check(cmd.Context())
			if err != nil {
				return err
			}
			if err := writeStatus(a.out, summary, a.outputFormat()); err != nil {
				return err
			}
			if summary.State == status.StateDown {
				return ErrBackendDown
			}
			return nil
		},
	}
}
