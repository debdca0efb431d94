package main

import (
	"go-twk/internal/app"
	"go-twk/internal/audit"
	"go-twk/internal/bootstrap"
	"go-twk/internal/config"
	"go-twk/internal/shared/apperror"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := newLogger(cfg.Environment)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	apperror.Init()
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	closeFn, err := app.BuildApp(r, cfg)
	if err != nil {
		logger.Fatal("build app failed", zap.Error(err))
	}
	defer closeFn()

	if err := bootstrap.StartHTTPServer(r, cfg.HTTP, audit.NewMirror(logger)); err != nil {
		logger.Error("http server stopped", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	build := zap.NewDevelopment
	if env == "production" {
		build = zap.NewProduction
	}
	logger, err := build()
	if err != nil {
		panic(err)
	}
	return logger
}
