package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nz_propper/config"
	"nz_propper/logging"
	"nz_propper/pricing"
	"nz_propper/scheduler"
	"nz_propper/scraper"
	"nz_propper/server"
	"nz_propper/storage"
	"nz_propper/workers"
)

var (
	noScrape = flag.Bool("no-scrape", false, "Run without the browser gateway (defaults only)")
	logPath  = flag.String("log", "propper.log", "Log file path, empty for stdout only")
)

func main() {
	flag.Parse()

	logFile, err := logging.Setup(*logPath)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else if logFile != nil {
		defer logFile.Close()
	}

	log.Println("Starting nz_propper...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, err := storage.NewSnapshotStore(cfg.Cache.DBPath)
	if err != nil {
		log.Fatalf("Failed to open snapshot cache: %v", err)
	}
	defer cache.Close()
	log.Printf("Snapshot cache: %s (TTL %s)", cfg.Cache.DBPath, cfg.Cache.TTL)

	if cfg.Cache.LegacyJSON != "" {
		if imported, err := cache.ImportLegacyJSON(ctx, cfg.Cache.LegacyJSON); err != nil {
			log.Printf("Warning: legacy cache import failed: %v", err)
		} else {
			log.Printf("Imported %d entries from legacy cache %s", imported, cfg.Cache.LegacyJSON)
		}
	}

	// Gateway chain: browser behind the cache, unless scraping is off.
	var gateway scraper.Gateway
	var browser *scraper.BrowserGateway
	if !*noScrape {
		browser = scraper.NewBrowserGateway(&cfg.Scraper)
		defer browser.Close()

		caching := scraper.NewCachingGateway(browser, cache, cfg.Cache.TTL)

		if cfg.Archive.PostgresURL != "" {
			archive, err := storage.NewArchiveStore(ctx, cfg.Archive.PostgresURL)
			if err != nil {
				log.Printf("Warning: fetch archive unavailable: %v", err)
			} else {
				defer archive.Close()
				caching.WithRecorder(archive)
				log.Println("Fetch-run archive enabled")
			}
		}
		gateway = caching
	} else {
		log.Println("Scraping disabled, calculations use defaults and cached data only")
	}

	engine := pricing.NewEngine(gatewayOrNil(gateway))

	var archiver server.Archiver
	if cfg.S3.Bucket != "" {
		uploader, err := storage.NewUploadArchiver(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			log.Printf("Warning: upload archiver unavailable: %v", err)
		} else {
			archiver = uploader
			log.Printf("Upload archiving to bucket %s", cfg.S3.Bucket)
		}
	}

	// Background maintenance: nightly prune plus the stale-snapshot refresher.
	sched := scheduler.New(&cfg.Scheduler, cache)
	if gateway != nil {
		refresher := workers.NewRefreshWorker(cache, gateway, cfg.Cache.TTL, 10)
		sched.SetRefreshWorker(refresher)
		go refresher.Run(ctx, 6*time.Hour)
		log.Println("Refresh worker started")
	}
	if err := sched.Start(ctx, 7*24*time.Hour); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	srv := server.New(&cfg.Server, engine, archiver)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	go func() {
		log.Printf("Listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	cancel()
	log.Println("Stopped")
}

// gatewayOrNil keeps the engine's nil check meaningful: a nil interface
// value, not a typed nil wrapped in the interface.
func gatewayOrNil(g scraper.Gateway) pricing.MarketGateway {
	if g == nil {
		return nil
	}
	return g
}
