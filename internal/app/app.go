package app

import (
	"go-twk/internal/config"
	"go-twk/internal/job"
	"go-twk/internal/messaging/kafka"
	"go-twk/internal/metrics"
	"go-twk/internal/middleware"
	"go-twk/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// connect opens the database and Redis connections. close releases both.
func connect(cfg *config.Config) (infra, func(), error) {
	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database)
	if err != nil {
		return infra{}, nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return infra{}, nil, err
	}

	rdb, err := connection.ConnectRedisWithRetry(cfg.Redis.Addr, cfg.Database.MaxRetries)
	if err != nil {
		_ = sqlDB.Close()
		return infra{}, nil, err
	}

	m := metrics.New()
	if err := m.Register(); err != nil {
		_ = rdb.Close()
		_ = sqlDB.Close()
		return infra{}, nil, err
	}

	closeFn := func() {
		_ = rdb.Close()
		_ = sqlDB.Close()
	}
	return infra{cfg: cfg, db: sqlDB, gormDB: gormDB, rdb: rdb, metrics: m}, closeFn, nil
}

// BuildApp wires every module onto router. In inline dispatch mode the API
// process also runs the jobs it creates.
func BuildApp(router *gin.Engine, cfg *config.Config) (func(), error) {
	in, closeFn, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	e := newEngine(in)

	var dispatcher job.Dispatcher
	switch cfg.Engine.DispatchMode {
	case config.DispatchInline:
		dispatcher = job.NewInlineDispatcher(e.runner)
		stopReclaim := startReclaimer(in, e)
		closeDB := closeFn
		closeFn = func() {
			stopReclaim()
			closeDB()
		}
	default:
		dispatcher = job.NewOutboxDispatcher(kafka.NewOutboxRepository(in.db))
	}
	zap.L().Info("job dispatch configured", zap.String("mode", cfg.Engine.DispatchMode))

	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		in.metrics.Middleware(),
		middleware.RateLimitByIP(rate.Limit(20), 40),
	)
	router.GET("/metrics", in.metrics.Handler())
	router.GET("/healthz", healthz(in))

	if err := registerModules(router, in, e, dispatcher); err != nil {
		closeFn()
		return nil, err
	}
	return closeFn, nil
}
