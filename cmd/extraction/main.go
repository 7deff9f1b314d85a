package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/clickhouse"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/config"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/exitcode"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/extraction"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/gapfill"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/grid"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/interpolate"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/model"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/storage"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/track"
)

func main() {
	// Parse CLI flags
	trackPath := flag.String("track", "", "Cruise track CSV file")
	trackTable := flag.String("track-table", "", "Cruise track table in the Postgres database at TRACK_DATABASE_URL")
	profileName := flag.String("profile", model.Chlorophyll, "Dataset profile")
	multiDate := flag.Bool("multidate", false, "Extract every observation date of the track separately")
	runID := flag.String("run-id", "", "Run identifier (UUIDv7 from orchestration, generated when empty)")
	onMissing := flag.String("on-missing-date", "abort", "What to do when a date fails: abort or skip")
	workers := flag.Int("workers", 0, "Dates processed concurrently (default EXTRACT_WORKERS)")
	debug := flag.Bool("debug", false, "Log diagnostics of every run")
	var overrides model.Profile
	flag.StringVar(&overrides.FieldVar, "field", "", "Override the field variable name")
	flag.StringVar(&overrides.LatVar, "lat", "", "Override the latitude variable name")
	flag.StringVar(&overrides.LonVar, "lon", "", "Override the longitude variable name")
	flag.StringVar(&overrides.TimeVar, "time", "", "Override the time variable name")
	flag.StringVar(&overrides.TrackLon, "track-lon", "", "Override the track longitude column")
	flag.StringVar(&overrides.TrackLat, "track-lat", "", "Override the track latitude column")
	flag.StringVar(&overrides.TrackTime, "track-time", "", "Override the track time column")
	flag.Parse()

	// Configure the global logger
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if (*trackPath == "") == (*trackTable == "") {
		slog.Error("exactly one of -track and -track-table is required")
		fmt.Fprintf(os.Stderr, "Usage: provide a track with -track <file.csv> or -track-table <table>\n")
		os.Exit(exitcode.ConfigError)
	}
	policy, err := extraction.ParsePolicy(*onMissing)
	if err != nil {
		slog.Error("invalid on-missing-date", "error", err)
		fmt.Fprintf(os.Stderr, "Usage: %v\n", err)
		os.Exit(exitcode.ConfigError)
	}

	id := model.RunID(*runID)
	if id == "" {
		if id, err = model.NewRunID(); err != nil {
			slog.Error("failed to generate run-id", "error", err)
			os.Exit(exitcode.ApplicationError)
		}
	}
	if err := id.Validate(); err != nil {
		slog.Error("invalid run-id", "error", err)
		fmt.Fprintf(os.Stderr, "Usage: run-id must be a UUIDv7\n")
		os.Exit(exitcode.ConfigError)
	}

	// Ensure environment variables are loaded
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load env vars", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(exitcode.ConfigError)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	profiles, err := config.LoadProfiles(cfg.ProfilesFile)
	if err != nil {
		slog.Error("failed to load profiles", "error", err)
		os.Exit(exitcode.ConfigError)
	}
	profile, err := resolveProfile(profiles, *profileName, overrides, *multiDate)
	if err != nil {
		slog.Error("invalid profile", "error", err)
		os.Exit(exitcode.ConfigError)
	}

	// Create a cancellable context (for graceful shutdown)
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracks, closeTracks, err := openTrack(*trackPath, *trackTable, cfg, profile)
	if err != nil {
		slog.Error("failed to open track", "error", err)
		os.Exit(exitCode(err))
	}
	defer closeTracks()

	chClient, err := clickhouse.NewClient(clickhouse.Config{
		Host:     cfg.ClickHouseHost,
		Port:     cfg.ClickHousePort,
		User:     cfg.ClickHouseUser,
		Password: cfg.ClickHousePassword,
		Database: cfg.ClickHouseDatabase,
	}, slog.Default())
	if err != nil {
		slog.Error("failed to connect to clickhouse", "error", err)
		os.Exit(exitcode.NetworkError)
	}
	defer chClient.Close()

	sink, err := openSink(ctx, cfg, profile, id)
	if err != nil {
		slog.Error("failed to initialize result sink", "error", err)
		os.Exit(exitcode.StorageError)
	}

	opts := options{
		multiDate: *multiDate,
		workers:   cfg.Workers,
		policy:    policy,
		debug:     *debug,
		runID:     id,
	}
	if _, err := run(ctx, opts, chClient.Source(profile.FieldVar), tracks, sink); err != nil {
		slog.Error("extraction failed", "error", err, "run_id", id)
		os.Exit(exitCode(err))
	}

	slog.Info("shutdown complete", "run_id", id)
}

type options struct {
	multiDate bool
	workers   int
	policy    extraction.Policy
	debug     bool
	runID     model.RunID
}

// dated is implemented by grid sources that can list their days.
type dated interface {
	Dates(ctx context.Context) ([]time.Time, error)
}

// run extracts the track from grids and writes the results to sink. A run in
// which every date failed returns the first failure.
func run(
	ctx context.Context,
	opts options,
	grids extraction.GridSource,
	tracks extraction.TrackSource,
	sink extraction.ResultSink,
) (*extraction.Summary, error) {
	var plotter extraction.DiagnosticPlotter
	if opts.debug {
		plotter = &extraction.LogPlotter{}
		if d, ok := grids.(dated); ok {
			dates, err := d.Dates(ctx)
			if err != nil {
				slog.WarnContext(ctx, "failed to list grid dates", "error", err)
			} else {
				slog.DebugContext(ctx, "grid dates available", "count", len(dates), "dates", dates)
			}
		}
	}

	svc := extraction.NewService(grids, tracks, sink, extraction.NewPipeline(interpolate.NewCache(), plotter))

	slog.InfoContext(ctx, "extraction started",
		"run_id", opts.runID,
		"multidate", opts.multiDate,
		"workers", opts.workers,
		"on_missing_date", opts.policy.String(),
	)

	summary, err := svc.Extract(ctx, extraction.Request{
		MultiDate: opts.multiDate,
		Workers:   opts.workers,
		OnError:   opts.policy,
	})
	if err != nil {
		return summary, err
	}
	if len(summary.Results) == 0 && len(summary.Failures) > 0 {
		return summary, summary.Failures[0]
	}

	slog.InfoContext(ctx, "extraction complete",
		"run_id", opts.runID,
		"dates", len(summary.Results),
		"failed", len(summary.Failures),
	)
	return summary, nil
}

func resolveProfile(profiles model.Profiles, name string, overrides model.Profile, multiDate bool) (model.Profile, error) {
	profile, err := profiles.Lookup(name)
	if err != nil {
		return model.Profile{}, err
	}
	profile = profile.WithOverrides(overrides)
	if err := profile.Validate(multiDate); err != nil {
		return model.Profile{}, err
	}
	return profile, nil
}

func openTrack(path, table string, cfg *config.Config, profile model.Profile) (extraction.TrackSource, func(), error) {
	if path != "" {
		src, err := track.OpenCSV(path, profile)
		return src, func() {}, err
	}
	if cfg.TrackDatabaseURL == "" {
		return nil, nil, &config.ErrMissingRequiredEnvVar{Name: "TRACK_DATABASE_URL"}
	}
	db, err := sql.Open("postgres", cfg.TrackDatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open track database: %w", err)
	}
	return track.NewPostgresSource(db, table, profile), func() { _ = db.Close() }, nil
}

func openSink(ctx context.Context, cfg *config.Config, profile model.Profile, runID model.RunID) (extraction.ResultSink, error) {
	if cfg.Sink != config.SinkMinIO {
		return &storage.FileSink{Dir: cfg.OutputDir}, nil
	}
	client, err := storage.NewMinIOClient(ctx, storage.MinIOConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewMinIOSink(client, profile.Name, runID.String()), nil
}

// exitCode maps an error to the exit code orchestration retries on.
func exitCode(err error) int {
	var (
		profileErr   *model.ConfigurationError
		missingVar   *config.ErrMissingRequiredEnvVar
		invalidVar   *config.ErrInvalidEnvVar
		columnErr    *track.ColumnNotFoundError
		parseErr     *track.ParseError
		notFound     *grid.DateNotFoundError
		insufficient *gapfill.InsufficientDataError
	)
	switch {
	case err == nil:
		return exitcode.Success
	case errors.As(err, &profileErr), errors.As(err, &missingVar), errors.As(err, &invalidVar),
		errors.As(err, &columnErr), errors.Is(err, track.ErrNoTimeColumn):
		return exitcode.ConfigError
	case errors.Is(err, extraction.ErrWrite):
		return exitcode.StorageError
	case errors.Is(err, model.ErrSourceUnavailable):
		return exitcode.NetworkError
	case errors.As(err, &notFound), errors.As(err, &insufficient), errors.Is(err, interpolate.ErrDegenerateGrid),
		errors.As(err, &parseErr), errors.Is(err, os.ErrNotExist):
		return exitcode.DataError
	default:
		return exitcode.ApplicationError
	}
}
