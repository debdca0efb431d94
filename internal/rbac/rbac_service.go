// Package rbac enforces the static role policy behind every route.
package rbac

import (
	"sync"

	"go-twk/internal/middleware"

	"github.com/casbin/casbin/v2"
	"go.uber.org/zap"
)

// NewEnforcer loads the casbin model and CSV policy from disk.
func NewEnforcer(modelPath, policyPath string) (*casbin.Enforcer, error) {
	return casbin.NewEnforcer(modelPath, policyPath)
}

type Service interface {
	Enforce(req middleware.EnforceRequest) (bool, error)
	Permissions(role string) ([]Permission, error)
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.Mutex
	logger   *zap.Logger
}

func NewService(enforcer *casbin.Enforcer) Service {
	return &service{
		enforcer: enforcer,
		logger:   zap.L().Named("rbac.service"),
	}
}

func (s *service) Enforce(req middleware.EnforceRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	allowed, err := s.enforcer.Enforce(req.Role, req.Resource, req.Action)
	if err != nil {
		return false, err
	}
	if !allowed {
		s.logger.Debug("rbac denied",
			zap.String("role", req.Role),
			zap.String("company_id", req.CompanyID),
			zap.String("resource", req.Resource),
			zap.String("action", req.Action),
		)
	}
	return allowed, nil
}

// Permissions lists the resource/action pairs granted to role, including
// those inherited from parent roles.
func (s *service) Permissions(role string) ([]Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.enforcer.GetImplicitPermissionsForUser(role)
	if err != nil {
		return nil, err
	}
	out := make([]Permission, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		out = append(out, Permission{Resource: rule[1], Action: rule[2]})
	}
	return out, nil
}
