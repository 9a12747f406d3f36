package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository reads subscription state and records usage.
// IncrementUsage owns the monthly rollover: when usage_period_end has passed it moves the end
// forward by whole months and restarts the count, so no external billing job is required.
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*entity.Profile, error)
	IncrementUsage(ctx context.Context, userID string) error
}

var _ ProfileRepository = &ProfilePostgres{}

type ProfilePostgres struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewProfilePostgres(db *pgxpool.Pool) *ProfilePostgres {
	return &ProfilePostgres{db: db, now: time.Now}
}

func (r *ProfilePostgres) Get(ctx context.Context, userID string) (*entity.Profile, error) {
	var (
		p         entity.Profile
		status    string
		periodEnd *time.Time
	)
	err := r.db.QueryRow(ctx, `
SELECT user_id, subscription_status, plan, requests_used, requests_limit, usage_period_end
FROM profiles
WHERE user_id = $1`, userID).Scan(&p.UserID, &status, &p.Plan, &p.RequestsUsed, &p.RequestsLimit, &periodEnd)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", userID, entity.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: get profile: %v", entity.ErrPersistence, err)
	}

	p.SubscriptionStatus = entity.SubscriptionStatus(status)
	if periodEnd != nil {
		p.UsagePeriodEnd = *periodEnd
	}
	return &p, nil
}

// IncrementUsage counts one request, rolling an ended usage period forward first.
func (r *ProfilePostgres) IncrementUsage(ctx context.Context, userID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin usage tx: %v", entity.ErrPersistence, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var (
		p         entity.Profile
		periodEnd *time.Time
	)
	err = tx.QueryRow(ctx, `
SELECT requests_used, usage_period_end
FROM profiles
WHERE user_id = $1
FOR UPDATE`, userID).Scan(&p.RequestsUsed, &periodEnd)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("profile %s: %w", userID, entity.ErrNotFound)
		}
		return fmt.Errorf("%w: lock profile: %v", entity.ErrPersistence, err)
	}
	if periodEnd != nil {
		p.UsagePeriodEnd = *periodEnd
	}

	p.RollUsagePeriod(r.now().UTC())
	p.RequestsUsed++

	var newEnd *time.Time
	if !p.UsagePeriodEnd.IsZero() {
		newEnd = &p.UsagePeriodEnd
	}
	if _, err := tx.Exec(ctx, `
UPDATE profiles
SET requests_used = $2, usage_period_end = $3, updated_at = now()
WHERE user_id = $1`, userID, p.RequestsUsed, newEnd); err != nil {
		return fmt.Errorf("%w: increment usage: %v", entity.ErrPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit usage tx: %v", entity.ErrPersistence, err)
	}
	return nil
}

var _ ProfileRepository = &ProfileMemory{}

// ProfileMemory is used with mocked integrations: unknown users get an active unlimited plan.
type ProfileMemory struct {
	mu       sync.Mutex
	profiles map[string]*entity.Profile
	now      func() time.Time
}

func NewProfileMemory(profiles ...entity.Profile) *ProfileMemory {
	m := &ProfileMemory{profiles: make(map[string]*entity.Profile), now: time.Now}
	for _, p := range profiles {
		m.profiles[p.UserID] = &p
	}
	return m
}

func (m *ProfileMemory) Get(_ context.Context, userID string) (*entity.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		p = &entity.Profile{UserID: userID, SubscriptionStatus: entity.SubscriptionActive, Plan: "dev"}
		m.profiles[userID] = p
	}
	cp := *p
	return &cp, nil
}

func (m *ProfileMemory) IncrementUsage(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return fmt.Errorf("profile %s: %w", userID, entity.ErrNotFound)
	}
	p.RollUsagePeriod(m.now().UTC())
	p.RequestsUsed++
	return nil
}
