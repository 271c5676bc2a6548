package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/DonatFortini/mailmate/internal/cache"
	"github.com/DonatFortini/mailmate/internal/credential"
	"github.com/DonatFortini/mailmate/internal/fetch"
	"github.com/DonatFortini/mailmate/internal/hydrate"
	"github.com/DonatFortini/mailmate/internal/model"
	"github.com/DonatFortini/mailmate/internal/server"
	"github.com/DonatFortini/mailmate/internal/service"
	"github.com/DonatFortini/mailmate/internal/store"
	"github.com/DonatFortini/mailmate/internal/webmail"
	"github.com/DonatFortini/mailmate/internal/webmail/gmail"
	"github.com/DonatFortini/mailmate/internal/webmail/outlook"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the configuration file")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	registry := webmail.NewRegistry(map[model.Provider]webmail.Builder{
		model.ProviderGmail:       gmail.New,
		model.ProviderOutlookOWA:  outlook.NewOWA,
		model.ProviderOutlookLive: outlook.NewLive,
	})

	var persist cache.Persister
	if cfg.Cache.DBPath != "" {
		db, err := store.NewSQLiteStore(cfg.Cache.DBPath)
		if err != nil {
			log.Fatalf("Failed to open cache store: %v", err)
		}
		defer db.Close()
		persist = db
	}

	recordCache := cache.New(cfg.Cache.MaxAge(), registry, persist)
	if err := recordCache.Restore(); err != nil {
		log.WithError(err).Warn("Cache restore failed, starting empty")
	}

	janitor := cache.NewJanitor(recordCache, cfg.Cache.MaxAge())
	janitor.Start()
	defer janitor.Stop()

	supplier := credential.NewKeyringSupplier(credential.BearerKey)
	fetcher := fetch.NewHTTPFetcher(cfg.Fetch.Timeout(), supplier)
	hydrator := hydrate.New(fetcher)

	svc := service.New(registry, hydrator, recordCache)
	httpServer := server.NewHTTPServer(svc)

	go func() {
		if err := httpServer.Start(cfg.Server.Addr); err != nil {
			log.Infof("HTTP server stopped: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Errorf("Shutdown error: %v", err)
	}
}
