package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"blocdesk/app/api"
	"blocdesk/app/config"
	"blocdesk/app/service/classify"
	"blocdesk/app/service/content"
	"blocdesk/app/service/decision"
	"blocdesk/app/service/dispatch"
	"blocdesk/app/service/extract"
	"blocdesk/app/service/queue"
	"blocdesk/app/service/session"
	"blocdesk/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	catalog, err := config.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		log.Fatalf("catalog load failed: %v", err)
	}
	do.ProvideValue(di, catalog)

	do.Provide(di, session.New)
	do.Provide(di, extract.New)
	do.Provide(di, classify.New)
	do.Provide(di, queue.New)
	do.Provide(di, content.New)
	do.Provide(di, decision.New)
	do.Provide(di, dispatch.NewLogSink)
	do.Provide(di, dispatch.New)
	do.Provide(di, api.New)

	slog.Info("Service started", "blocs", len(catalog.Blocs))

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	g, runCtx := errgroup.WithContext(appCtx)

	g.Go(func() error {
		return do.MustInvoke[*dispatch.Service](di).Run(runCtx)
	})

	g.Go(func() error {
		return do.MustInvoke[*api.Server](di).Run(runCtx)
	})

	if err = g.Wait(); err != nil {
		log.Fatalf("service failed: %v", err)
	}
}
