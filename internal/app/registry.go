package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go-twk/internal/audit"
	"go-twk/internal/config"
	"go-twk/internal/directory"
	"go-twk/internal/execution"
	"go-twk/internal/formula"
	"go-twk/internal/history"
	"go-twk/internal/integration"
	"go-twk/internal/job"
	"go-twk/internal/metrics"
	"go-twk/internal/middleware"
	"go-twk/internal/rbac"
	"go-twk/internal/report"
	"go-twk/internal/scenario"
	"go-twk/internal/shared/counter"
	"go-twk/internal/shared/money"
	"go-twk/internal/simulation"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// infra holds the connections shared by every process.
type infra struct {
	cfg     *config.Config
	db      *sql.DB
	gormDB  *gorm.DB
	rdb     *redis.Client
	metrics *metrics.Metrics
}

// engine is the background half of the system: repositories plus the job
// runner with both batch processors registered.
type engine struct {
	scenarios   scenario.Repository
	simulations simulation.Repository
	jobs        job.Repository
	flags       job.CancelFlags
	audit       audit.Service
	runner      *job.Runner
}

func formulaLimits(cfg config.EngineConfig) formula.Limits {
	return formula.Limits{MaxSteps: cfg.FormulaMaxSteps, Timeout: cfg.FormulaTimeout}
}

func newEngine(in infra) *engine {
	cfg := in.cfg
	e := &engine{
		scenarios:   scenario.NewRepository(in.gormDB),
		simulations: simulation.NewRepository(in.gormDB),
		jobs:        job.NewRepository(in.gormDB),
		flags:       job.NewRedisFlags(in.rdb),
		audit:       audit.NewService(audit.NewRepository(in.gormDB), audit.NewMirror(zap.L())),
	}

	simRunner := simulation.NewRunner(
		in.db,
		e.scenarios,
		e.simulations,
		history.NewStore(in.gormDB),
		directory.NewStore(in.gormDB),
		e.audit,
		simulation.WithWorkers(cfg.Engine.Workers),
		simulation.WithRounder(money.NewRounder(cfg.Engine.Rounding)),
		simulation.WithLimits(formulaLimits(cfg.Engine)),
		simulation.WithMetrics(in.metrics),
	)

	execRunner := execution.NewRunner(
		in.db,
		e.scenarios,
		execution.NewRepository(in.gormDB),
		integration.NewTaxClient(cfg.Tax, integration.DefaultBreakerSettings, in.metrics),
		integration.NewPayrollRunClient(cfg.PayrollRun, integration.DefaultBreakerSettings, in.metrics),
		e.audit,
		execution.WithWorkers(cfg.Engine.Workers),
		execution.WithRetries(cfg.Engine.PaymentRetries),
		execution.WithMetrics(in.metrics),
	)

	e.runner = job.NewRunner(e.jobs, e.flags, in.metrics, cfg.Engine.CancelPollPeriod)
	e.runner.Register(job.KindSimulate, simRunner)
	e.runner.Register(job.KindExecute, execRunner)
	return e
}

// startReclaimer fails jobs abandoned by dead workers until stop is called.
// Every process that runs jobs starts one; FailStale keeps them from racing.
func startReclaimer(in infra, e *engine) (stop func()) {
	staleAfter := in.cfg.Engine.StaleAfter
	reclaimer := job.NewReclaimer(in.db, e.jobs, e.runner, e.audit, staleAfter)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		reclaimer.Run(ctx, staleAfter/2)
	}()
	return func() {
		cancel()
		<-done
	}
}

func registerModules(router *gin.Engine, in infra, e *engine, dispatcher job.Dispatcher) error {
	cfg := in.cfg

	enforcer, err := rbac.NewEnforcer(cfg.Engine.ModelPath, cfg.Engine.PolicyPath)
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(enforcer)

	// --- Services ---
	scenarioService := scenario.NewService(
		in.db, e.scenarios, counter.NewRepository(in.gormDB), e.audit, e.simulations,
		scenario.WithFormulaLimits(formulaLimits(cfg.Engine)),
	)
	simulationService := simulation.NewService(in.db, e.simulations, e.scenarios, e.jobs, dispatcher, e.audit)
	executionService := execution.NewService(in.db, e.scenarios, e.jobs, dispatcher, e.audit)
	jobService := job.NewService(in.db, e.jobs, e.flags, e.runner, e.audit)
	reportService := report.NewService(report.NewRepository(in.gormDB))

	// Batch triggers are expensive; throttle per actor and honour
	// Idempotency-Key replays.
	trigger := []gin.HandlerFunc{
		middleware.RateLimitByActor(0.5, 3),
		middleware.Idempotency(in.rdb),
	}

	api := router.Group("/api/v1",
		middleware.Auth(cfg.Auth.Secret),
		middleware.ContextLogger(zap.L().Named("http")),
	)
	{
		scenario.RegisterRoutes(api, scenario.NewHandler(scenarioService), rbacService)
		simulation.RegisterRoutes(api, simulation.NewHandler(simulationService), rbacService, trigger...)
		execution.RegisterRoutes(api, execution.NewHandler(executionService), rbacService, trigger...)
		job.RegisterRoutes(api, job.NewHandler(jobService), rbacService)
		audit.RegisterRoutes(api, audit.NewHandler(e.audit), rbacService)
		report.RegisterRoutes(api, report.NewHandler(reportService), rbacService)
		rbac.RegisterRoutes(api, rbac.NewHandler(rbacService))
	}
	return nil
}

func healthz(in infra) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		status := gin.H{"database": "ok", "redis": "ok", "time": time.Now().UTC()}
		code := http.StatusOK
		if err := in.db.PingContext(ctx); err != nil {
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := in.rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	}
}
