package contracts

import (
	"context"
)

// ⭐ SSOT: repository interfaces are defined only here

// AccountRepository manages accounts
type AccountRepository interface {
	// CreateAccount stores the account together with its initial settings and zero goals
	CreateAccount(ctx context.Context, account *Account, settings Settings) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	ListAccounts(ctx context.Context) ([]*Account, error)
	// DeleteAccount removes the account and everything keyed by it
	DeleteAccount(ctx context.Context, id string) error
}

// OperationRepository manages operations per account.
// List returns operations by ascending date, same-day operations in insertion order.
type OperationRepository interface {
	ListOperations(ctx context.Context, accountID string) ([]*Operation, error)
	GetOperation(ctx context.Context, accountID, id string) (*Operation, error)
	InsertOperation(ctx context.Context, op *Operation) error
	// UpsertOperations inserts or replaces operations by ID and returns how many were written
	UpsertOperations(ctx context.Context, ops []*Operation) (int, error)
	UpdateOperation(ctx context.Context, op *Operation) error
	DeleteOperation(ctx context.Context, accountID, id string) error
	DeleteOperations(ctx context.Context, accountID string) (int, error)
}

// SettingsRepository manages per-account settings and goals
type SettingsRepository interface {
	GetSettings(ctx context.Context, accountID string) (*Settings, error)
	SaveSettings(ctx context.Context, accountID string, settings Settings) error
	GetGoals(ctx context.Context, accountID string) (*Goals, error)
	SaveGoals(ctx context.Context, accountID string, goals Goals) error
}

// HWMRepository persists one high-water-mark per account.
// GetHWM returns (nil, nil) when none is stored yet.
type HWMRepository interface {
	GetHWM(ctx context.Context, accountID string) (*float64, error)
	// AdvanceHWM stores value only if it exceeds the stored one
	AdvanceHWM(ctx context.Context, accountID string, value float64) error
	// ResetHWM overwrites the stored value unconditionally
	ResetHWM(ctx context.Context, accountID string, value float64) error
}

// Store is the full persistence surface of the journal
type Store interface {
	AccountRepository
	OperationRepository
	SettingsRepository
	HWMRepository
	Close() error
}
