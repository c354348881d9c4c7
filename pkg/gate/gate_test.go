package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagegate/stagegate/pkg/element"
)

func mustLock(t *testing.T, path string, typ LockType, expected any) *Lock {
	t.Helper()
	lock, err := NewLock(path, typ, expected)
	require.NoError(t, err)
	return lock
}

func TestNewGate(t *testing.T) {
	lock := &Lock{PropertyPath: "a", Type: LockNotEmpty}

	tests := []struct {
		name       string
		gateName   string
		components []Component
		wantErr    bool
	}{
		{
			name:       "valid gate",
			gateName:   "basics",
			components: []Component{lock},
		},
		{
			name:       "empty name",
			gateName:   "",
			components: []Component{lock},
			wantErr:    true,
		},
		{
			name:       "no components",
			gateName:   "empty",
			components: nil,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGate(tt.gateName, tt.components)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.gateName, g.Name)
		})
	}
}

func TestNewGateRejectsCycle(t *testing.T) {
	lock := &Lock{PropertyPath: "a", Type: LockNotEmpty}
	inner, err := NewGate("inner", []Component{lock})
	require.NoError(t, err)

	// Force a cycle after construction, then rebuild through NewGate.
	inner.Components = append(inner.Components, inner)
	_, err = NewGate("outer", []Component{inner})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contains itself")
}

func TestNewGateRecordsOperation(t *testing.T) {
	lock := &Lock{PropertyPath: "a", Type: LockNotEmpty}

	g, err := NewGate("legacy", []Component{lock}, WithOperation("or"))
	require.NoError(t, err)
	assert.Equal(t, "or", g.Metadata["operation"])

	g, err = NewGate("plain", []Component{lock}, WithOperation("and"))
	require.NoError(t, err)
	assert.NotContains(t, g.Metadata, "operation")
}

func TestGateEvaluateShortCircuit(t *testing.T) {
	el := element.New(map[string]any{
		"name":  "order",
		"age":   30,
		"email": "",
	})

	passName := mustLock(t, "name", LockExists, true)
	passAge := mustLock(t, "age", LockGreaterThan, 18)
	failEmail := mustLock(t, "email", LockExists, true)

	tests := []struct {
		name               string
		components         []Component
		wantPassed         bool
		wantShortCircuited bool
		wantPassedCount    int
		wantMessages       int
	}{
		{
			name:            "all pass",
			components:      []Component{passName, passAge},
			wantPassed:      true,
			wantPassedCount: 2,
		},
		{
			name:               "first fails skips the rest",
			components:         []Component{failEmail, passName, passAge},
			wantPassed:         false,
			wantShortCircuited: true,
			wantMessages:       1,
		},
		{
			name:               "middle failure leaves one unevaluated",
			components:         []Component{passName, failEmail, passAge},
			wantPassed:         false,
			wantShortCircuited: true,
			wantPassedCount:    1,
			wantMessages:       1,
		},
		{
			name:               "failure on the last component is not a short circuit",
			components:         []Component{passName, passAge, failEmail},
			wantPassed:         false,
			wantShortCircuited: false,
			wantPassedCount:    2,
			wantMessages:       1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGate("g", tt.components)
			require.NoError(t, err)

			res := g.Evaluate(el, nil)
			assert.Equal(t, tt.wantPassed, res.Passed)
			assert.Equal(t, tt.wantShortCircuited, res.ShortCircuited)
			assert.Len(t, res.PassedComponents, tt.wantPassedCount)
			assert.Len(t, res.Messages, tt.wantMessages)
			assert.Len(t, res.Actions, tt.wantMessages)
		})
	}
}

func TestGateEvaluateNested(t *testing.T) {
	el := element.New(map[string]any{
		"kind":  "premium",
		"score": 80,
	})

	inner, err := NewGate("scoring", []Component{
		mustLock(t, "score", LockGreaterThan, 50),
		mustLock(t, "score", LockLessThan, 100),
	})
	require.NoError(t, err)

	outer, err := NewGate("eligibility", []Component{
		mustLock(t, "kind", LockEquals, "premium"),
		inner,
	})
	require.NoError(t, err)

	res := outer.Evaluate(el, nil)
	assert.True(t, res.Passed)
	assert.False(t, res.ShortCircuited)

	// A failing inner gate surfaces its lock's message on the outer result.
	failing := element.New(map[string]any{"kind": "premium", "score": 10})
	res = outer.Evaluate(failing, nil)
	assert.False(t, res.Passed)
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0], "greater than 50")
}

func TestGatePropertyPaths(t *testing.T) {
	inner, err := NewGate("inner", []Component{
		mustLock(t, "score", LockGreaterThan, 1),
		mustLock(t, "name", LockExists, true),
	})
	require.NoError(t, err)

	outer, err := NewGate("outer", []Component{
		mustLock(t, "name", LockNotEmpty, nil),
		inner,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "score"}, outer.PropertyPaths())
}

func TestGateComplexityAndDepth(t *testing.T) {
	lockA := &Lock{PropertyPath: "a", Type: LockNotEmpty}
	lockB := &Lock{PropertyPath: "b", Type: LockNotEmpty}

	inner, err := NewGate("inner", []Component{lockA, lockB})
	require.NoError(t, err)
	outer, err := NewGate("outer", []Component{lockA, inner})
	require.NoError(t, err)

	assert.Equal(t, 2, inner.Complexity())
	assert.Equal(t, 1, inner.MaxDepth())
	assert.Equal(t, 3, outer.Complexity())
	assert.Equal(t, 2, outer.MaxDepth())
	assert.Empty(t, outer.ValidateStructure())
}

func TestValidateStructureWarnings(t *testing.T) {
	lock := &Lock{PropertyPath: "a", Type: LockNotEmpty}

	// Nest seven levels deep.
	g, err := NewGate("level1", []Component{lock})
	require.NoError(t, err)
	for i := 2; i <= 7; i++ {
		g, err = NewGate("level", []Component{g})
		require.NoError(t, err)
	}
	warnings := g.ValidateStructure()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "nests 7 levels deep")

	// Thirty locks in one gate.
	components := make([]Component, 30)
	for i := range components {
		components[i] = lock
	}
	wideGate, err := NewGate("wide", components)
	require.NoError(t, err)
	warnings = wideGate.ValidateStructure()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "contains 30 locks")
}
