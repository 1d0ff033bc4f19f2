package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/localrivet/cratescribe/internal/errortypes"
)

func TestNewBudgetManager_RejectsNonPositiveTotal(t *testing.T) {
	tok := NewStaticTokenizer(RuneEncoder{})

	for _, total := range []int{0, -100} {
		_, err := NewBudgetManager(total, "gpt-4", tok)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidBudget)
		assert.True(t, errortypes.IsConfigError(err))
	}

	_, err := NewBudgetManager(10, "gpt-4", nil)
	assert.Error(t, err)
}

func TestBudgetManager_Allocate(t *testing.T) {
	b, err := NewBudgetManager(100, "gpt-4", NewStaticTokenizer(RuneEncoder{}))
	require.NoError(t, err)

	assert.True(t, b.Allocate("system", 30))
	assert.True(t, b.Allocate("manifest", 50))
	assert.False(t, b.Allocate("response", 21))
	assert.Equal(t, 20, b.Remaining())
	assert.Equal(t, 0, b.Allocation("response"))

	// Re-allocating adds to the component.
	assert.True(t, b.Allocate("system", 20))
	assert.Equal(t, 50, b.Allocation("system"))
	assert.Equal(t, 0, b.Remaining())

	assert.False(t, b.Allocate("negative", -5))
}

func TestBudgetManager_CanFit(t *testing.T) {
	b, err := NewBudgetManager(10, "gpt-4", NewStaticTokenizer(RuneEncoder{}))
	require.NoError(t, err)
	require.True(t, b.Allocate("prompt", 4))

	assert.True(t, b.CanFit("sixsix"))
	assert.False(t, b.CanFit("seven!!"))
}

func TestBudgetManager_Summary(t *testing.T) {
	b, err := NewBudgetManager(200, "gpt-4", NewStaticTokenizer(RuneEncoder{}))
	require.NoError(t, err)
	b.Allocate("prompt", 50)

	s := b.Summary()
	assert.Equal(t, 200, s.Total)
	assert.Equal(t, 50, s.Used)
	assert.Equal(t, 150, s.Remaining)
	assert.InDelta(t, 25.0, s.UtilizationPercent, 1e-9)
	assert.Equal(t, map[string]int{"prompt": 50}, s.Allocations)

	// The summary is a copy.
	s.Allocations["prompt"] = 1
	assert.Equal(t, 50, b.Allocation("prompt"))
}

func TestBudgetManager_InvariantProperty(t *testing.T) {
	tok := NewStaticTokenizer(RuneEncoder{})

	rapid.Check(t, func(rt *rapid.T) {
		total := rapid.IntRange(1, 1000).Draw(rt, "total")
		b, err := NewBudgetManager(total, "gpt-4", tok)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}

		steps := rapid.IntRange(0, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			component := rapid.SampledFrom([]string{"system", "manifest", "files", "response"}).Draw(rt, "component")
			amount := rapid.IntRange(-10, 400).Draw(rt, "amount")

			before := b.Summary()
			ok := b.Allocate(component, amount)
			after := b.Summary()

			if !ok {
				if after.Used != before.Used || len(after.Allocations) != len(before.Allocations) {
					rt.Fatalf("rejected allocation mutated the budget")
				}
				for k, v := range before.Allocations {
					if after.Allocations[k] != v {
						rt.Fatalf("rejected allocation changed %s", k)
					}
				}
			}

			sum := 0
			for _, v := range after.Allocations {
				sum += v
			}
			if after.Used != sum {
				rt.Fatalf("used %d != sum of allocations %d", after.Used, sum)
			}
			if after.Used > total {
				rt.Fatalf("used %d exceeds total %d", after.Used, total)
			}
		}
	})
}
