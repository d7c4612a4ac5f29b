package journal

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// MemoryStore is an in-memory implementation of contracts.Store.
// Records are copied on the way in and out.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*contracts.Account
	order    []string
	ops      map[string][]*contracts.Operation
	settings map[string]contracts.Settings
	goals    map[string]contracts.Goals
	hwm      map[string]float64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*contracts.Account),
		ops:      make(map[string][]*contracts.Operation),
		settings: make(map[string]contracts.Settings),
		goals:    make(map[string]contracts.Goals),
		hwm:      make(map[string]float64),
	}
}

// Close is a no-op
func (s *MemoryStore) Close() error { return nil }

// =============================================================================
// Accounts
// =============================================================================

// CreateAccount stores a new account with its settings
func (s *MemoryStore) CreateAccount(_ context.Context, account *contracts.Account, settings contracts.Settings) error {
	if account == nil || account.ID == "" {
		return contracts.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; ok {
		return fmt.Errorf("account %s: %w", account.ID, contracts.ErrDuplicateKey)
	}

	a := *account
	s.accounts[a.ID] = &a
	s.order = append(s.order, a.ID)
	s.settings[a.ID] = settings
	s.goals[a.ID] = contracts.Goals{}
	return nil
}

// GetAccount returns one account
func (s *MemoryStore) GetAccount(_ context.Context, id string) (*contracts.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, contracts.ErrNotFound)
	}
	out := *a
	return &out, nil
}

// ListAccounts returns accounts in creation order
func (s *MemoryStore) ListAccounts(_ context.Context) ([]*contracts.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*contracts.Account, 0, len(s.order))
	for _, id := range s.order {
		a := *s.accounts[id]
		out = append(out, &a)
	}
	return out, nil
}

// DeleteAccount removes the account and all of its data
func (s *MemoryStore) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("account %s: %w", id, contracts.ErrNotFound)
	}

	delete(s.accounts, id)
	delete(s.ops, id)
	delete(s.settings, id)
	delete(s.goals, id)
	delete(s.hwm, id)

	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// =============================================================================
// Operations
// =============================================================================

// ListOperations returns operations by ascending date, same-day in insertion order
func (s *MemoryStore) ListOperations(_ context.Context, accountID string) ([]*contracts.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.accounts[accountID]; !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}

	stored := s.ops[accountID]
	out := make([]*contracts.Operation, len(stored))
	for i, op := range stored {
		out[i] = copyOperation(op)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// GetOperation returns one operation
func (s *MemoryStore) GetOperation(_ context.Context, accountID, id string) (*contracts.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(accountID, id); i >= 0 {
		return copyOperation(s.ops[accountID][i]), nil
	}
	return nil, fmt.Errorf("operation %s: %w", id, contracts.ErrNotFound)
}

// InsertOperation appends a new operation
func (s *MemoryStore) InsertOperation(_ context.Context, op *contracts.Operation) error {
	if op == nil || op.ID == "" {
		return contracts.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[op.AccountID]; !ok {
		return fmt.Errorf("account %s: %w", op.AccountID, contracts.ErrNotFound)
	}
	if s.existsAnywhere(op.ID) {
		return fmt.Errorf("operation %s: %w", op.ID, contracts.ErrDuplicateKey)
	}

	s.ops[op.AccountID] = append(s.ops[op.AccountID], copyOperation(op))
	return nil
}

// UpsertOperations inserts new operations and replaces existing ones in place
func (s *MemoryStore) UpsertOperations(_ context.Context, ops []*contracts.Operation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	for _, op := range ops {
		if op == nil || op.ID == "" {
			return written, contracts.ErrInvalidInput
		}
		if _, ok := s.accounts[op.AccountID]; !ok {
			return written, fmt.Errorf("account %s: %w", op.AccountID, contracts.ErrNotFound)
		}

		if i := s.indexOf(op.AccountID, op.ID); i >= 0 {
			s.ops[op.AccountID][i] = copyOperation(op)
		} else if s.existsAnywhere(op.ID) {
			continue
		} else {
			s.ops[op.AccountID] = append(s.ops[op.AccountID], copyOperation(op))
		}
		written++
	}
	return written, nil
}

// UpdateOperation replaces an existing operation
func (s *MemoryStore) UpdateOperation(_ context.Context, op *contracts.Operation) error {
	if op == nil {
		return contracts.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(op.AccountID, op.ID)
	if i < 0 {
		return fmt.Errorf("operation %s: %w", op.ID, contracts.ErrNotFound)
	}
	s.ops[op.AccountID][i] = copyOperation(op)
	return nil
}

// DeleteOperation removes one operation
func (s *MemoryStore) DeleteOperation(_ context.Context, accountID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(accountID, id)
	if i < 0 {
		return fmt.Errorf("operation %s: %w", id, contracts.ErrNotFound)
	}
	list := s.ops[accountID]
	s.ops[accountID] = append(list[:i], list[i+1:]...)
	return nil
}

// DeleteOperations removes every operation of an account
func (s *MemoryStore) DeleteOperations(_ context.Context, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return 0, fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}
	n := len(s.ops[accountID])
	delete(s.ops, accountID)
	return n, nil
}

func (s *MemoryStore) indexOf(accountID, id string) int {
	for i, op := range s.ops[accountID] {
		if op.ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) existsAnywhere(id string) bool {
	for accountID := range s.ops {
		if s.indexOf(accountID, id) >= 0 {
			return true
		}
	}
	return false
}

func copyOperation(op *contracts.Operation) *contracts.Operation {
	out := *op
	if op.Contracts != nil {
		n := *op.Contracts
		out.Contracts = &n
	}
	return &out
}

// =============================================================================
// Settings & Goals
// =============================================================================

// GetSettings returns the account settings
func (s *MemoryStore) GetSettings(_ context.Context, accountID string) (*contracts.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.settings[accountID]
	if !ok {
		return nil, fmt.Errorf("settings %s: %w", accountID, contracts.ErrNotFound)
	}
	return &v, nil
}

// SaveSettings replaces the account settings
func (s *MemoryStore) SaveSettings(_ context.Context, accountID string, settings contracts.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}
	s.settings[accountID] = settings
	return nil
}

// GetGoals returns the account goals
func (s *MemoryStore) GetGoals(_ context.Context, accountID string) (*contracts.Goals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.goals[accountID]
	if !ok {
		return nil, fmt.Errorf("goals %s: %w", accountID, contracts.ErrNotFound)
	}
	return &v, nil
}

// SaveGoals replaces the account goals
func (s *MemoryStore) SaveGoals(_ context.Context, accountID string, goals contracts.Goals) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}
	s.goals[accountID] = goals
	return nil
}

// =============================================================================
// High-Water-Mark
// =============================================================================

// GetHWM returns the stored mark or nil
func (s *MemoryStore) GetHWM(_ context.Context, accountID string) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.hwm[accountID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// AdvanceHWM stores value if it exceeds the current mark
func (s *MemoryStore) AdvanceHWM(_ context.Context, accountID string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}
	if cur, ok := s.hwm[accountID]; !ok || value > cur {
		s.hwm[accountID] = value
	}
	return nil
}

// ResetHWM overwrites the mark
func (s *MemoryStore) ResetHWM(_ context.Context, accountID string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return fmt.Errorf("account %s: %w", accountID, contracts.ErrNotFound)
	}
	s.hwm[accountID] = value
	return nil
}
