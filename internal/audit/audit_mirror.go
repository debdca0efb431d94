package audit

import (
	"context"
	"time"

	"go-twk/internal/shared/contextutil"

	"go.uber.org/zap"
)

// Mirror writes every audit record and process lifecycle event to the
// "audit" logger so they reach the log pipeline as well as the database.
type Mirror struct {
	logger *zap.Logger
}

func NewMirror(logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.L()
	}
	return &Mirror{logger: logger.Named("audit")}
}

func (m *Mirror) Record(ctx context.Context, rec ExecutionRecord) {
	m.logger.Info("audit event",
		zap.String("timestamp", rec.CreatedAt.UTC().Format(time.RFC3339)),
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.String("company_id", rec.CompanyID.String()),
		zap.String("scenario_id", rec.ScenarioID.String()),
		zap.String("actor_id", rec.ActorID),
		zap.String("action", string(rec.Action)),
		zap.String("outcome", rec.Outcome),
		zap.Int("employees", rec.EmployeeCount),
		zap.Int("periods", rec.PeriodCount),
		zap.String("total", rec.Total.StringFixed(2)),
		zap.Int("errors", rec.ErrorCount),
		zap.Int("warnings", rec.WarningCount),
	)
}

// Log records a process-level event such as a server shutdown.
func (m *Mirror) Log(ctx context.Context, action, message string, meta map[string]any) {
	m.logger.Info("audit event",
		zap.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.String("action", action),
		zap.String("message", message),
		zap.Any("meta", meta),
	)
}
