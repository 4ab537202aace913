package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/config"
	"github.com/cristianadrielbraun/qrstudio/internal/handlers"
	"github.com/cristianadrielbraun/qrstudio/internal/logging"
	"github.com/cristianadrielbraun/qrstudio/internal/studio"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logrus.WithError(err).Fatal("load .env")
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("configure logging")
	}

	sc, err := studio.ConfigFrom(cfg, logrus.NewEntry(log))
	if err != nil {
		log.WithError(err).Fatal("configure renderer")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(logging.Requests(log))
	r.Use(gin.Recovery())

	// Static assets
	r.Static("/web/static", "web/static")

	h := handlers.New(handlers.Deps{
		Config:     cfg,
		Log:        log,
		Engine:     sc.Engine,
		Compositor: sc.Compositor,
		Glyphs:     sc.Glyphs,
	})
	h.Routes(r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go h.Sessions().Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	}()

	log.WithFields(logrus.Fields{"event": "listening", "addr": cfg.Addr(), "engine": sc.Engine.Name()}).Info("qrstudio listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("serve")
	}
	h.Close()
}
