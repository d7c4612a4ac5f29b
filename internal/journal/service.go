package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/risk"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/id"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/logger"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/redis"
)

// Event names pushed to live subscribers
const (
	EventDashboard = "dashboard"
	EventDeleted   = "account_deleted"
)

// Publisher pushes account events to live subscribers
type Publisher interface {
	Publish(accountID, event string, payload interface{})
}

// Service is the caller of the risk engine
// ⭐ SSOT: every write and evaluation of an account is serialized here
// - load snapshot → evaluate → persist advanced HWM → refresh cache → publish
type Service struct {
	store     contracts.Store
	engine    *risk.Engine
	logger    *logger.Logger
	cache     *redis.Cache
	cacheTTL  time.Duration
	publisher Publisher
	defaults  contracts.Settings
	location  *time.Location
	clock     func() time.Time
	locks     *keyedMutex
}

// Option configures a Service
type Option func(*Service)

// WithCache enables the dashboard cache
func WithCache(cache *redis.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithPublisher enables live dashboard pushes
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithDefaults sets the settings new accounts start with
func WithDefaults(settings contracts.Settings) Option {
	return func(s *Service) { s.defaults = settings }
}

// WithLocation sets the timezone "today" is resolved in
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the time source
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// NewService creates a journal service over a store
func NewService(store contracts.Store, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		engine:   risk.NewEngine(),
		logger:   log,
		cacheTTL: redis.TTLShort,
		defaults: contracts.DefaultSettings(),
		location: time.UTC,
		clock:    time.Now,
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store
func (s *Service) Store() contracts.Store {
	return s.store
}

// Now returns the current time in the configured timezone
func (s *Service) Now() time.Time {
	return s.clock().In(s.location)
}

// =============================================================================
// Accounts
// =============================================================================

// CreateAccount creates an account; nil settings fall back to the defaults
func (s *Service) CreateAccount(ctx context.Context, name string, settings *contracts.Settings) (*contracts.Account, error) {
	return s.CreateAccountWithID(ctx, id.NewAccount(), name, settings)
}

// CreateAccountWithID creates an account under a caller-chosen ID, e.g. the
// cuenta_id of an account kept in Supabase
func (s *Service) CreateAccountWithID(ctx context.Context, accountID, name string, settings *contracts.Settings) (*contracts.Account, error) {
	account := &contracts.Account{
		ID:        strings.TrimSpace(accountID),
		Name:      strings.TrimSpace(name),
		CreatedAt: s.clock().UTC(),
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	initial := s.defaults
	if settings != nil {
		initial = *settings
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreateAccount(ctx, account, initial); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.WithAccount(account.ID).WithFields(map[string]interface{}{
		"name":            account.Name,
		"initial_balance": initial.InitialBalance,
	}).Info("Account created")

	return account, nil
}

// ListAccounts returns every account
func (s *Service) ListAccounts(ctx context.Context) ([]*contracts.Account, error) {
	return s.store.ListAccounts(ctx)
}

// GetAccount returns one account
func (s *Service) GetAccount(ctx context.Context, accountID string) (*contracts.Account, error) {
	return s.store.GetAccount(ctx, accountID)
}

// DeleteAccount removes an account with all of its data
func (s *Service) DeleteAccount(ctx context.Context, accountID string) error {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	if err := s.store.DeleteAccount(ctx, accountID); err != nil {
		return err
	}
	s.invalidate(ctx, accountID)
	if s.publisher != nil {
		s.publisher.Publish(accountID, EventDeleted, map[string]string{"account_id": accountID})
	}

	s.logger.WithAccount(accountID).Info("Account deleted")
	return nil
}

// =============================================================================
// Settings & Goals
// =============================================================================

// GetSettings returns the account settings
func (s *Service) GetSettings(ctx context.Context, accountID string) (*contracts.Settings, error) {
	return s.store.GetSettings(ctx, accountID)
}

// UpdateSettings validates and stores new settings, then re-evaluates.
// The persisted high-water-mark is kept, so a lower trailing amount may breach.
func (s *Service) UpdateSettings(ctx context.Context, accountID string, settings contracts.Settings) (*risk.Result, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	if err := s.store.SaveSettings(ctx, accountID, settings); err != nil {
		return nil, err
	}
	return s.afterWrite(ctx, accountID)
}

// GetGoals returns the account goals
func (s *Service) GetGoals(ctx context.Context, accountID string) (*contracts.Goals, error) {
	return s.store.GetGoals(ctx, accountID)
}

// UpdateGoals stores new goals and re-evaluates
func (s *Service) UpdateGoals(ctx context.Context, accountID string, goals contracts.Goals) (*risk.Result, error) {
	if err := goals.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	if err := s.store.SaveGoals(ctx, accountID, goals); err != nil {
		return nil, err
	}
	return s.afterWrite(ctx, accountID)
}

// =============================================================================
// Operations
// =============================================================================

// ListOperations returns the account operations matching filter.
// With limit > 0 the newest limit operations are returned, newest first.
func (s *Service) ListOperations(ctx context.Context, accountID string, filter risk.Filter, limit int) ([]*contracts.Operation, error) {
	ops, err := s.store.ListOperations(ctx, accountID)
	if err != nil {
		return nil, err
	}

	ops = risk.FilterOperations(ops, filter)
	if limit > 0 {
		ops = risk.Recent(ops, limit)
	}
	return ops, nil
}

// ListYears returns the years that hold operations, newest first
func (s *Service) ListYears(ctx context.Context, accountID string) ([]int, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	ops, err := s.store.ListOperations(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return risk.Years(ops), nil
}

// GetOperation returns one operation
func (s *Service) GetOperation(ctx context.Context, accountID, opID string) (*contracts.Operation, error) {
	return s.store.GetOperation(ctx, accountID, opID)
}

func (s *Service) prepare(op *contracts.Operation) error {
	now := s.clock().UTC()
	if op.ID == "" {
		op.ID = id.New()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = now
	}
	op.UpdatedAt = now
	op.Normalize()
	return op.Validate()
}

// AddOperation records a new operation and re-evaluates the account
func (s *Service) AddOperation(ctx context.Context, op *contracts.Operation) (*contracts.Operation, *risk.Result, error) {
	op.ID = ""
	if err := s.prepare(op); err != nil {
		return nil, nil, err
	}

	unlock := s.locks.Lock(op.AccountID)
	defer unlock()

	if err := s.store.InsertOperation(ctx, op); err != nil {
		return nil, nil, err
	}

	s.logger.WithAccount(op.AccountID).WithFields(map[string]interface{}{
		"operation_id": op.ID,
		"date":         op.DateString(),
		"amount":       op.Amount,
	}).Info("Operation recorded")

	res, err := s.afterHistoryWrite(ctx, op.AccountID)
	return op, res, err
}

// UpdateOperation replaces an operation; amount or date changes re-derive every metric
func (s *Service) UpdateOperation(ctx context.Context, op *contracts.Operation) (*contracts.Operation, *risk.Result, error) {
	unlock := s.locks.Lock(op.AccountID)
	defer unlock()

	existing, err := s.store.GetOperation(ctx, op.AccountID, op.ID)
	if err != nil {
		return nil, nil, err
	}
	op.CreatedAt = existing.CreatedAt
	if err := s.prepare(op); err != nil {
		return nil, nil, err
	}

	if err := s.store.UpdateOperation(ctx, op); err != nil {
		return nil, nil, err
	}

	res, err := s.afterHistoryWrite(ctx, op.AccountID)
	return op, res, err
}

// DeleteOperation removes an operation and re-evaluates
func (s *Service) DeleteOperation(ctx context.Context, accountID, opID string) (*risk.Result, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	if err := s.store.DeleteOperation(ctx, accountID, opID); err != nil {
		return nil, err
	}
	return s.afterHistoryWrite(ctx, accountID)
}

// ImportOperations upserts a batch of operations for one account.
// Imported history is replayed so peaks inside the batch reach the high-water-mark.
func (s *Service) ImportOperations(ctx context.Context, accountID string, ops []*contracts.Operation) (int, *risk.Result, error) {
	for i, op := range ops {
		op.AccountID = accountID
		if err := s.prepare(op); err != nil {
			return 0, nil, fmt.Errorf("operation %d: %w", i+1, err)
		}
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return 0, nil, err
	}

	written, err := s.store.UpsertOperations(ctx, ops)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to import operations: %w", err)
	}

	s.logger.WithAccount(accountID).WithFields(map[string]interface{}{
		"received": len(ops),
		"written":  written,
	}).Info("Operations imported")

	res, err := s.afterHistoryWrite(ctx, accountID)
	return written, res, err
}

// Reset deletes every operation, clears goals and rewinds the high-water-mark
// to the initial balance
func (s *Service) Reset(ctx context.Context, accountID string) (*risk.Result, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	settings, err := s.store.GetSettings(ctx, accountID)
	if err != nil {
		return nil, err
	}

	deleted, err := s.store.DeleteOperations(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete operations: %w", err)
	}
	if err := s.store.SaveGoals(ctx, accountID, contracts.Goals{}); err != nil {
		return nil, fmt.Errorf("failed to reset goals: %w", err)
	}
	if err := s.store.ResetHWM(ctx, accountID, settings.InitialBalance); err != nil {
		return nil, fmt.Errorf("failed to reset high-water-mark: %w", err)
	}

	s.logger.WithAccount(accountID).WithField("deleted_operations", deleted).Warn("Account reset")

	return s.afterWrite(ctx, accountID)
}

// =============================================================================
// Evaluation
// =============================================================================

// Dashboard returns the cached evaluation, evaluating on a miss
func (s *Service) Dashboard(ctx context.Context, accountID string) (*risk.Result, error) {
	if s.cache != nil {
		var cached risk.Result
		found, err := s.cache.Get(ctx, redis.DashboardKey(accountID), &cached)
		if err != nil {
			s.logger.WithAccount(accountID).WithError(err).Warn("Dashboard cache read failed")
		}
		if found {
			return &cached, nil
		}
	}
	return s.Evaluate(ctx, accountID)
}

// Evaluate runs the engine over the current snapshot and persists the advanced HWM
func (s *Service) Evaluate(ctx context.Context, accountID string) (*risk.Result, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	return s.evaluateLocked(ctx, accountID)
}

// Snapshot loads the engine input for an account
func (s *Service) Snapshot(ctx context.Context, accountID string) (*risk.Input, error) {
	ops, err := s.store.ListOperations(ctx, accountID)
	if err != nil {
		return nil, err
	}
	settings, err := s.store.GetSettings(ctx, accountID)
	if err != nil {
		return nil, err
	}
	goals, err := s.store.GetGoals(ctx, accountID)
	if err != nil {
		return nil, err
	}
	prior, err := s.store.GetHWM(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &risk.Input{
		Operations: ops,
		Settings:   *settings,
		Goals:      *goals,
		PriorHWM:   prior,
		Now:        s.Now(),
	}, nil
}

func (s *Service) evaluateLocked(ctx context.Context, accountID string) (*risk.Result, error) {
	in, err := s.Snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}

	res := s.engine.Evaluate(*in)

	if res.HWMAdvanced || in.PriorHWM == nil {
		if err := s.store.AdvanceHWM(ctx, accountID, res.HWM); err != nil {
			return nil, fmt.Errorf("failed to persist high-water-mark: %w", err)
		}
		if res.HWMAdvanced {
			s.logger.WithAccount(accountID).WithFields(map[string]interface{}{
				"prior": risk.SeedHWM(in.PriorHWM, in.Settings.InitialBalance),
				"hwm":   res.HWM,
			}).Info("High-water-mark advanced")
		}
	}

	if res.Breached {
		s.logger.WithAccount(accountID).WithFields(map[string]interface{}{
			"balance": res.CurrentBalance,
			"floor":   res.DrawdownFloor,
			"margin":  res.MarginToFloor,
		}).Warn("Trailing drawdown floor breached")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, redis.DashboardKey(accountID), res, s.cacheTTL); err != nil {
			s.logger.WithAccount(accountID).WithError(err).Warn("Dashboard cache write failed")
		}
	}

	return res, nil
}

func (s *Service) afterWrite(ctx context.Context, accountID string) (*risk.Result, error) {
	s.invalidate(ctx, accountID)

	res, err := s.evaluateLocked(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.Publish(accountID, EventDashboard, res)
	}
	return res, nil
}

// afterHistoryWrite replays the history before evaluating, so an operation
// dated before existing ones still reaches the persisted high-water-mark.
func (s *Service) afterHistoryWrite(ctx context.Context, accountID string) (*risk.Result, error) {
	rec, err := s.reconcileLocked(ctx, accountID)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, accountID)

	res, err := s.evaluateLocked(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if rec.Advanced {
		res.HWMAdvanced = true
	}

	if s.publisher != nil {
		s.publisher.Publish(accountID, EventDashboard, res)
	}
	return res, nil
}

func (s *Service) invalidate(ctx context.Context, accountID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, redis.AccountKeys(accountID)...); err != nil {
		s.logger.WithAccount(accountID).WithError(err).Warn("Dashboard cache invalidation failed")
	}
}

// =============================================================================
// HWM Reconciliation
// =============================================================================

// Reconciliation reports one replay of an account history
type Reconciliation struct {
	AccountID string  `json:"account_id"`
	Persisted float64 `json:"persisted"`
	Replayed  float64 `json:"replayed"`
	Advanced  bool    `json:"advanced"`
}

// ReconcileHWM replays the full history and advances the persisted mark when the
// replayed peak is higher. The persisted mark is never lowered.
func (s *Service) ReconcileHWM(ctx context.Context, accountID string) (*Reconciliation, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	rec, err := s.reconcileLocked(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if rec.Advanced {
		s.invalidate(ctx, accountID)
	}
	return rec, nil
}

func (s *Service) reconcileLocked(ctx context.Context, accountID string) (*Reconciliation, error) {
	ops, err := s.store.ListOperations(ctx, accountID)
	if err != nil {
		return nil, err
	}
	settings, err := s.store.GetSettings(ctx, accountID)
	if err != nil {
		return nil, err
	}
	prior, err := s.store.GetHWM(ctx, accountID)
	if err != nil {
		return nil, err
	}

	persisted := risk.SeedHWM(prior, settings.InitialBalance)
	replayed := risk.RecomputeHWM(ops, *settings)

	rec := &Reconciliation{
		AccountID: accountID,
		Persisted: persisted,
		Replayed:  replayed,
	}

	if _, advanced := risk.AdvanceHWM(persisted, replayed); advanced {
		if err := s.store.AdvanceHWM(ctx, accountID, replayed); err != nil {
			return nil, fmt.Errorf("failed to advance high-water-mark: %w", err)
		}
		rec.Advanced = true
		s.logger.WithAccount(accountID).WithFields(map[string]interface{}{
			"persisted": persisted,
			"replayed":  replayed,
		}).Info("High-water-mark advanced from replayed history")
	}

	return rec, nil
}

// ReconcileAll reconciles every account and returns the per-account reports.
// A failing account is logged and skipped.
func (s *Service) ReconcileAll(ctx context.Context) ([]*Reconciliation, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	out := make([]*Reconciliation, 0, len(accounts))
	var errs []error
	for _, a := range accounts {
		rec, err := s.ReconcileHWM(ctx, a.ID)
		if err != nil {
			s.logger.WithAccount(a.ID).WithError(err).Error("High-water-mark reconciliation failed")
			errs = append(errs, err)
			continue
		}
		out = append(out, rec)
	}
	return out, errors.Join(errs...)
}
