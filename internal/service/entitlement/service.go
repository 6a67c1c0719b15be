package entitlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"OddsEdge/internal/domain/models"
	domrepo "OddsEdge/internal/domain/repository"
	"OddsEdge/pkg/cache"
	applogger "OddsEdge/pkg/logger"
)

// Service resolves session tokens to plans against Postgres, with a short
// TTL cache in front so the stream's periodic rechecks stay cheap. The
// database is the single authority: client-asserted tiers are never read.
type Service struct {
	db     *sql.DB
	cache  cache.Service
	ttl    time.Duration
	logger *applogger.Logger
}

// New creates the entitlement service. cache may be nil to disable caching.
func New(db *sql.DB, c cache.Service, ttl time.Duration, logger *applogger.Logger) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{db: db, cache: c, ttl: ttl, logger: logger}
}

type cachedPlan struct {
	Plan   models.Plan `json:"plan"`
	UserID string      `json:"user_id"`
}

// PlanByToken resolves a session token. An unknown token yields an
// unauthenticated free plan with no error; an expired session yields
// ErrSessionExpired; a database failure surfaces so the caller can apply its
// default-to-free fallback explicitly.
func (s *Service) PlanByToken(ctx context.Context, token string) (models.Plan, error) {
	if token == "" {
		return freePlan(), nil
	}

	key := "plan:" + token
	if s.cache != nil {
		var cp cachedPlan
		if err := s.cache.Get(ctx, key, &cp); err == nil {
			cp.Plan.UserID = cp.UserID
			return cp.Plan, nil
		}
	}

	var (
		userID     string
		planName   string
		trialUntil sql.NullTime
		expiresAt  time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT s.user_id, COALESCE(p.plan, 'free'), p.trial_until, s.expires_at
		FROM sessions s
		LEFT JOIN user_plans p ON p.user_id = s.user_id
		WHERE s.token = $1`,
		token,
	).Scan(&userID, &planName, &trialUntil, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return freePlan(), nil
	}
	if err != nil {
		return freePlan(), fmt.Errorf("entitlement lookup: %w", err)
	}

	if time.Now().After(expiresAt) {
		return freePlan(), domrepo.ErrSessionExpired
	}

	plan := models.Plan{
		Authenticated: true,
		Plan:          planName,
		Trial:         trialUntil.Valid && trialUntil.Time.After(time.Now()),
		UserID:        userID,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedPlan{Plan: plan, UserID: userID}, s.ttl); err != nil {
			s.logger.Debug("plan cache set failed", applogger.Error(err))
		}
	}
	return plan, nil
}

func freePlan() models.Plan {
	return models.Plan{Authenticated: false, Plan: "free"}
}

var _ domrepo.Entitlements = (*Service)(nil)
