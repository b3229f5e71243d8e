// Fleettrack - Fleet Report Service
//
// Fleettrack turns tracked-vehicle data into branded PDF reports:
// filtered aggregation, a flowing page layout, watermark and footer
// overlays, and QR-coded share links signed with a stateless token.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tradelane/fleettrack/pkg/api"
	"github.com/tradelane/fleettrack/pkg/assets"
	"github.com/tradelane/fleettrack/pkg/config"
	"github.com/tradelane/fleettrack/pkg/fleet"
	"github.com/tradelane/fleettrack/pkg/render"
	"github.com/tradelane/fleettrack/pkg/report"
	"github.com/tradelane/fleettrack/pkg/token"
)

const version = "1.2.0"

func main() {
	configPath := flag.String("config", "", "Config file path (default: ./config.yaml)")
	fixtures := flag.String("fixtures", "", "Vehicle fixtures file (overrides config)")
	out := flag.String("out", "", "Render one report to this file and exit (no server)")
	reportType := flag.String("type", "status_summary", "Report type for -out mode")
	status := flag.String("status", "", "Status filter for -out mode")
	location := flag.String("location", "", "Location filter for -out mode")
	initConfig := flag.Bool("init", false, "Initialize default config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fleettrack %s\n", version)
		os.Exit(0)
	}

	// A .env file is optional; environment overrides work without one.
	godotenv.Load()

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}

	if *initConfig {
		if err := config.InitConfig(cfgPath); err != nil {
			fmt.Printf("Failed to initialize config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config initialized at: %s\n", cfgPath)
		fmt.Println("Set FLEETTRACK_TOKEN_SECRET before starting the server.")
		os.Exit(0)
	}

	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)

	store := fleet.NewMemoryStore()
	fixturesPath := *fixtures
	if fixturesPath == "" {
		fixturesPath = cfg.FixturesPath
	}
	if fixturesPath != "" {
		if err := store.LoadFixtures(fixturesPath); err != nil {
			log.WithError(err).Fatal("loading fleet fixtures")
		}
		log.WithField("path", fixturesPath).Info("fleet fixtures loaded")
	}

	issuer, err := token.NewIssuer(cfg.Token.Secret, cfg.Token.TTL, cfg.Server.BaseURL)
	if err != nil {
		log.WithError(err).Fatal("configuring token issuer")
	}

	fetcher := assets.NewFetcher(cfg.Assets.FetchTimeout, log)

	opts := render.DefaultOptions()
	opts.Compress = cfg.Report.Compress
	opts.WatermarkAlpha = cfg.Report.WatermarkOpacity
	opts.Company = render.Company{
		Name:    cfg.Company.Name,
		Address: cfg.Company.Address,
		Email:   cfg.Company.Email,
	}

	if *out != "" {
		if err := renderOnce(store, issuer, fetcher, cfg, opts, *out, *reportType, *status, *location); err != nil {
			log.WithError(err).Fatal("rendering report")
		}
		fmt.Printf("Report written to %s\n", *out)
		return
	}

	server := api.NewServer(&api.ServerConfig{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, log)

	handler := api.NewReportHandler(store, issuer, fetcher, cfg.Assets.LogoURL, opts, log)
	handler.RegisterRoutes(server.Router())

	if err := server.Start(); err != nil {
		log.WithError(err).Fatal("starting server")
	}
	log.WithField("addr", server.Address()).Info("fleettrack ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
		os.Exit(1)
	}
}

// renderOnce runs the report pipeline without the HTTP server and writes
// the PDF to a file.
func renderOnce(store fleet.Store, issuer *token.Issuer, fetcher *assets.Fetcher,
	cfg *config.Config, opts render.Options, path, reportType, status, location string) error {
	if !render.ValidKind(reportType) {
		return fmt.Errorf("unknown report type %q", reportType)
	}
	kind := render.Kind(reportType)
	filter := fleet.FilterSet{Status: status, LocationID: location}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ds, err := report.NewAggregator(store).Aggregate(ctx, filter, kind.Dimension())
	if err != nil {
		return err
	}

	var doc *render.Document
	if res := fetcher.Logo(ctx, cfg.Assets.LogoURL); res.Ok() {
		doc, err = render.Render(ds, kind, res.Image, opts)
	} else {
		doc, err = render.Render(ds, kind, nil, opts)
	}
	if err != nil {
		return err
	}

	tok, err := issuer.Issue(reportType, filter)
	if err != nil {
		return err
	}
	if qr, err := issuer.QRImage(tok); err == nil {
		doc.StampQR(qr, "Scan to view this report online")
	}

	doc.ApplyOverlay()
	pdf, err := doc.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, pdf, 0644)
}

// newLogger builds the process logger, with file rotation when a log file
// is configured.
func newLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}

	return log
}
