package scenario

import (
	"errors"
	"strings"

	scenarioerrors "go-twk/internal/scenario/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return scenarioerrors.ErrScenarioNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "uq_scenarios_company_code":
			return scenarioerrors.ErrDuplicateCode
		case "uq_formula_rules_scenario_code":
			return scenarioerrors.ErrDuplicateRuleCode
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, "uq_scenarios_company_code") {
		return scenarioerrors.ErrDuplicateCode
	}

	return err
}
