package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/orb/orbscreen/internal/cdm"
	"github.com/orb/orbscreen/internal/config"
	"github.com/orb/orbscreen/internal/formations"
	"github.com/orb/orbscreen/internal/metrics"
	"github.com/orb/orbscreen/internal/probability"
	"github.com/orb/orbscreen/internal/risk"
	"github.com/orb/orbscreen/internal/screening"
	"github.com/orb/orbscreen/internal/spacetrack"
	"github.com/orb/orbscreen/internal/tle"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	var (
		configPath = flag.String("config", "", "path to YAML config file")
		mode       = flag.String("mode", "screen", "screen, catalog, or pc")
		primaries  = flag.String("primaries", "", "comma-separated NORAD ids to screen (mode screen)")
		cdmPath    = flag.String("cdm", "", "conjunction message file for Pc (mode pc)")
		pcMethod   = flag.String("pc-method", "foster", "foster or montecarlo")
		radiusM    = flag.Float64("hard-body-radius", 20, "combined hard body radius in meters")
		samples    = flag.Int("samples", 0, "Monte Carlo sample count (0 = default)")
		seed       = flag.Uint64("seed", 1, "Monte Carlo seed")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	applyEnvOverrides(&cfg, logger)

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	// Catalog runs can take minutes; SIGINT cancels cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "screen":
		err = runScreen(ctx, cfg, *primaries, logger)
	case "catalog":
		err = runCatalog(ctx, cfg, logger)
	case "pc":
		err = runPc(*cdmPath, *pcMethod, *radiusM, *samples, *seed)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Error("run failed", "mode", *mode, "error", err)
		os.Exit(1)
	}
}

// applyEnvOverrides layers ORBSCREEN_* environment variables over the
// file configuration.
func applyEnvOverrides(cfg *config.Config, logger *slog.Logger) {
	if v := os.Getenv("ORBSCREEN_CATALOG_FILE"); v != "" {
		cfg.CatalogFile = v
	}
	if v := os.Getenv("ORBSCREEN_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("ORBSCREEN_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("ORBSCREEN_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBSCREEN_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("ORBSCREEN_THRESHOLD_KM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			logger.Warn("invalid ORBSCREEN_THRESHOLD_KM value, using default", "value", v, "default", cfg.Screening.ThresholdKm)
		} else {
			cfg.Screening.ThresholdKm = f
		}
	}
	if v := os.Getenv("ORBSCREEN_STEP_MINUTES"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			logger.Warn("invalid ORBSCREEN_STEP_MINUTES value, using default", "value", v, "default", cfg.Screening.StepMinutes)
		} else {
			cfg.Screening.StepMinutes = f
		}
	}
	if v := os.Getenv("ORBSCREEN_SPACETRACK_IDENTITY"); v != "" {
		cfg.SpaceTrack.Identity = v
	}
	if v := os.Getenv("ORBSCREEN_SPACETRACK_PASSWORD"); v != "" {
		cfg.SpaceTrack.Password = v
	}
}

// loadCatalog fetches a catalog and installs it in a Store, which
// indexes objects by catalog number for primary resolution.
func loadCatalog(ctx context.Context, cfg config.Config, logger *slog.Logger) (*tle.Store, error) {
	catalog, err := fetchCatalog(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	store := tle.NewStore()
	store.Set(catalog)
	if age, ok := store.Age(time.Now().UTC()); ok {
		logger.Info("catalog ready", "source", catalog.Source, "objects", len(catalog.Objects), "age", age.Round(time.Second).String())
	}
	return store, nil
}

// fetchCatalog reads element sets from the configured file, or fetches
// from Space-Track with a disk cache fallback.
func fetchCatalog(ctx context.Context, cfg config.Config, logger *slog.Logger) (*tle.Catalog, error) {
	if cfg.CatalogFile != "" {
		data, err := os.ReadFile(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("reading catalog file: %w", err)
		}
		elems, err := tle.Parse(bytes.NewReader(data), logger)
		if err != nil {
			return nil, err
		}
		return tle.NewCatalog(cfg.CatalogFile, time.Now().UTC(), elems), nil
	}

	cache := tle.NewCache(cfg.CacheDir, 5)
	client, err := spacetrack.NewClient(cfg.SpaceTrack.BaseURL, cfg.SpaceTrack.Identity, cfg.SpaceTrack.Password, logger)
	if err != nil {
		return loadCachedCatalog(cache, logger, err)
	}

	data, err := client.FetchCatalog(ctx, cfg.SpaceTrack.EpochWithinDays)
	if err != nil {
		return loadCachedCatalog(cache, logger, err)
	}
	fetchedAt := time.Now().UTC()
	if err := cache.Write(data, fetchedAt); err != nil {
		logger.Warn("failed to cache fetched catalog", "error", err)
	}
	elems, err := tle.Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, err
	}
	return tle.NewCatalog("spacetrack", fetchedAt, elems), nil
}

func loadCachedCatalog(cache *tle.Cache, logger *slog.Logger, cause error) (*tle.Catalog, error) {
	logger.Warn("live catalog unavailable, trying disk cache", "error", cause)
	data, ts, err := cache.LoadLatest()
	if err != nil {
		return nil, fmt.Errorf("no catalog available: %w", cause)
	}
	elems, err := tle.Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded catalog from cache", "count", len(elems), "cached_at", ts.Format(time.RFC3339))
	return tle.NewCatalog("cache", ts, elems), nil
}

func screeningOptions(cfg config.Config) screening.Options {
	return screening.Options{
		WindowDays:         cfg.Screening.WindowDays,
		CatalogWindowHours: cfg.Screening.CatalogWindowHours,
		ThresholdKm:        cfg.Screening.ThresholdKm,
		StepMinutes:        cfg.Screening.StepMinutes,
		MaxAgeDays:         cfg.Screening.MaxAgeDays,
	}
}

func runScreen(ctx context.Context, cfg config.Config, primariesArg string, logger *slog.Logger) error {
	if primariesArg == "" {
		return fmt.Errorf("mode screen requires -primaries")
	}
	var ids []int
	for _, s := range strings.Split(primariesArg, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("invalid NORAD id %q", s)
		}
		ids = append(ids, id)
	}

	store, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	catalog := store.Get()

	primaries := store.Select(ids)
	if len(primaries) == 0 {
		return fmt.Errorf("none of the requested primaries are in the catalog")
	}

	scr := screening.NewScreener(cfg.Workers, logger)
	events, err := scr.Screen(ctx, primaries, catalog.Objects, screeningOptions(cfg))
	if err != nil {
		return err
	}
	printEvents(events, catalog.Objects)
	return nil
}

func runCatalog(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	catalog := store.Get()
	scr := screening.NewScreener(cfg.Workers, logger)
	events, err := scr.ScreenCatalog(ctx, catalog.Objects, screeningOptions(cfg))
	if err != nil {
		return err
	}
	printEvents(events, catalog.Objects)
	return nil
}

func printEvents(events []screening.ConjunctionEvent, catalog []*tle.ElementSet) {
	intlByID := make(map[int]string, len(catalog))
	for _, e := range catalog {
		intlByID[e.NORADID] = e.IntlDesignator
	}
	formationEvents, threats := formations.SplitFormationEvents(events, intlByID)

	fmt.Printf("Found %d conjunction events (%d formation encounters filtered)\n", len(threats), len(formationEvents))
	for _, ev := range threats {
		a := risk.Assess(risk.Input{
			MissDistanceKm:   ev.MissDistanceKm,
			RelativeSpeedKmS: ev.RelativeSpeedKmS,
			TCA:              ev.TCA,
			Size:             risk.SizeMedium,
		}, time.Now)
		fmt.Printf("  %s x %s  TCA %s  miss %.3f km  vrel %.2f km/s  risk %s (%.0f)\n",
			label(ev.NORADID1, ev.Name1), label(ev.NORADID2, ev.Name2),
			ev.TCA.Format(time.RFC3339), ev.MissDistanceKm, ev.RelativeSpeedKmS,
			a.Category, a.Score)
	}
}

func label(id int, name string) string {
	if name != "" {
		return fmt.Sprintf("%s (%d)", name, id)
	}
	return strconv.Itoa(id)
}

// runPc reads a conjunction message and computes collision probability
// from its states and covariances.
func runPc(path, method string, radiusM float64, samples int, seed uint64) error {
	if path == "" {
		return fmt.Errorf("mode pc requires -cdm")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading conjunction message: %w", err)
	}

	var msg *cdm.CDM
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		msg, err = cdm.ParseXML(bytes.NewReader(data))
	} else {
		msg, err = cdm.ParseKVN(bytes.NewReader(data))
	}
	if err != nil {
		return err
	}
	for _, w := range msg.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	cov1, err := eciPositionCovKm2(msg.Object1)
	if err != nil {
		return fmt.Errorf("object 1: %w", err)
	}
	cov2, err := eciPositionCovKm2(msg.Object2)
	if err != nil {
		return fmt.Errorf("object 2: %w", err)
	}

	res, err := probability.ComputePc(
		*msg.Object1.Position, *msg.Object1.Velocity,
		*msg.Object2.Position, *msg.Object2.Velocity,
		cov1, cov2, radiusM, probability.Method(method),
		probability.Options{Samples: samples, Seed: seed},
	)
	if err != nil {
		return err
	}

	fmt.Printf("Message %s from %s\n", msg.MessageID, msg.Originator)
	fmt.Printf("TCA %s  miss %.3f km  vrel %.3f km/s\n", msg.TCA.Format(time.RFC3339), msg.MissDistanceKm, msg.RelativeSpeedKmS)
	fmt.Printf("Pc = %.3e (%s, mahalanobis %.2f)\n", res.Probability, res.Method, res.MahalanobisDistance)
	if res.IllConditioned {
		fmt.Println("note: covariance was ill-conditioned; Pc is a degraded estimate")
	}
	if msg.CollisionProbability >= 0 {
		fmt.Printf("Originator Pc = %.3e\n", msg.CollisionProbability)
	}
	return nil
}

// eciPositionCovKm2 rotates an object's RTN covariance into the
// inertial frame and returns its position block converted to km^2.
func eciPositionCovKm2(obj cdm.Object) (*mat.SymDense, error) {
	if obj.Position == nil || obj.Velocity == nil {
		return nil, fmt.Errorf("state vector is required for Pc")
	}
	if obj.Covariance == nil {
		return nil, fmt.Errorf("covariance is required for Pc")
	}
	rot := probability.RTNToECI(*obj.Position, *obj.Velocity)
	eci := probability.RotateCovariance(obj.Covariance, rot)

	out := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			out.SetSym(i, j, eci.At(i, j)/1e6) // m^2 to km^2
		}
	}
	return out, nil
}
