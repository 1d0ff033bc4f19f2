package tokens

import (
	"errors"
	"fmt"
	"sync"

	"github.com/localrivet/cratescribe/internal/errortypes"
)

// ErrInvalidBudget is returned when a budget is created with a non-positive total.
var ErrInvalidBudget = errors.New("token budget must be positive")

// BudgetSummary is a point-in-time view of a BudgetManager.
type BudgetSummary struct {
	Total              int            `json:"total_budget"`
	Used               int            `json:"used_tokens"`
	Remaining          int            `json:"remaining_tokens"`
	UtilizationPercent float64        `json:"utilization_percent"`
	Allocations        map[string]int `json:"allocations"`
}

// BudgetManager splits a fixed token budget between named components of one
// multi-step interaction. Used always equals the sum of the allocations and
// never exceeds the total.
type BudgetManager struct {
	total       int
	used        int
	allocations map[string]int
	model       string
	tokenizer   *Tokenizer
	mu          sync.Mutex
}

// NewBudgetManager creates a BudgetManager of total tokens counted with model.
func NewBudgetManager(total int, model string, tokenizer *Tokenizer) (*BudgetManager, error) {
	if total <= 0 {
		return nil, errortypes.ConfigError(ErrInvalidBudget, fmt.Sprintf("invalid token budget %d", total))
	}
	if tokenizer == nil {
		return nil, errortypes.ConfigError(errors.New("tokenizer is nil"), "invalid token budget")
	}
	return &BudgetManager{
		total:       total,
		allocations: make(map[string]int),
		model:       model,
		tokenizer:   tokenizer,
	}, nil
}

// Allocate reserves tokens for component. It returns false, leaving the
// budget untouched, when the reservation would exceed the total. Allocating
// to a component again adds to its existing allocation.
func (b *BudgetManager) Allocate(component string, tokens int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tokens < 0 || b.used+tokens > b.total {
		return false
	}
	b.allocations[component] += tokens
	b.used += tokens
	return true
}

// Remaining returns the unallocated tokens.
func (b *BudgetManager) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total - b.used
}

// Allocation returns the tokens allocated to component.
func (b *BudgetManager) Allocation(component string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allocations[component]
}

// CanFit reports whether text fits in the remaining budget.
func (b *BudgetManager) CanFit(text string) bool {
	return b.tokenizer.Count(text, b.model) <= b.Remaining()
}

// Summary returns the budget totals and a copy of the allocations.
func (b *BudgetManager) Summary() BudgetSummary {
	b.mu.Lock()
	defer b.mu.Unlock()

	allocations := make(map[string]int, len(b.allocations))
	for k, v := range b.allocations {
		allocations[k] = v
	}
	return BudgetSummary{
		Total:              b.total,
		Used:               b.used,
		Remaining:          b.total - b.used,
		UtilizationPercent: float64(b.used) / float64(b.total) * 100,
		Allocations:        allocations,
	}
}
