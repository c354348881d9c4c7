package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagegate/stagegate/pkg/gate"
	"github.com/stagegate/stagegate/pkg/process"
	"github.com/stagegate/stagegate/pkg/stage"
)

func buildProcess(t *testing.T, stages []*stage.Stage, opts ...process.Option) *process.Process {
	t.Helper()
	p, err := process.New("lint-target", stages, opts...)
	require.NoError(t, err)
	return p
}

func mustGate(t *testing.T, name string, locks ...gate.Component) *gate.Gate {
	t.Helper()
	g, err := gate.NewGate(name, locks)
	require.NoError(t, err)
	return g
}

func issueTypes(issues []Issue) []IssueType {
	types := make([]IssueType, len(issues))
	for i, issue := range issues {
		types[i] = issue.Type
	}
	return types
}

func TestLintCleanProcess(t *testing.T) {
	lock, err := gate.NewLock("title", gate.LockNotEmpty, nil)
	require.NoError(t, err)
	st, err := stage.New("intake", []*gate.Gate{mustGate(t, "basics", lock)})
	require.NoError(t, err)

	issues := Lint(buildProcess(t, []*stage.Stage{st}))
	assert.Empty(t, issues)
}

func TestLintEmptyStage(t *testing.T) {
	st, err := stage.New("placeholder", nil)
	require.NoError(t, err)

	issues := Lint(buildProcess(t, []*stage.Stage{st}))
	require.Len(t, issues, 1)
	assert.Equal(t, IssueEmptyStage, issues[0].Type)
	assert.Contains(t, issues[0].Description, "placeholder")
	assert.Equal(t, []string{"placeholder"}, issues[0].Stages)
}

func TestLintEqualsConflict(t *testing.T) {
	a, err := gate.NewLock("status", gate.LockEquals, "open")
	require.NoError(t, err)
	b, err := gate.NewLock("status", gate.LockEquals, "closed")
	require.NoError(t, err)
	st, err := stage.New("s", []*gate.Gate{mustGate(t, "contradiction", a, b)})
	require.NoError(t, err)

	issues := Lint(buildProcess(t, []*stage.Stage{st}))
	require.Len(t, issues, 1)
	assert.Equal(t, IssueLogicalConflict, issues[0].Type)
	assert.Contains(t, issues[0].Description, "property 'status'")
	assert.Contains(t, issues[0].Description, "multiple EQUALS conditions")
}

func TestLintNumericConflicts(t *testing.T) {
	tests := []struct {
		name       string
		locks      func(t *testing.T) []gate.Component
		wantCount  int
		wantDetail string
	}{
		{
			name: "equals below greater_than",
			locks: func(t *testing.T) []gate.Component {
				eq, err := gate.NewLock("score", gate.LockEquals, 5)
				require.NoError(t, err)
				gt, err := gate.NewLock("score", gate.LockGreaterThan, 10)
				require.NoError(t, err)
				return []gate.Component{eq, gt}
			},
			wantCount:  1,
			wantDetail: "EQUALS 5 conflicts with GREATER_THAN 10",
		},
		{
			name: "equals above less_than",
			locks: func(t *testing.T) []gate.Component {
				eq, err := gate.NewLock("score", gate.LockEquals, 20)
				require.NoError(t, err)
				lt, err := gate.NewLock("score", gate.LockLessThan, 10)
				require.NoError(t, err)
				return []gate.Component{eq, lt}
			},
			wantCount:  1,
			wantDetail: "EQUALS 20 conflicts with LESS_THAN 10",
		},
		{
			name: "empty numeric range",
			locks: func(t *testing.T) []gate.Component {
				gt, err := gate.NewLock("score", gate.LockGreaterThan, 10)
				require.NoError(t, err)
				lt, err := gate.NewLock("score", gate.LockLessThan, 5)
				require.NoError(t, err)
				return []gate.Component{gt, lt}
			},
			wantCount:  1,
			wantDetail: "GREATER_THAN 10 conflicts with LESS_THAN 5",
		},
		{
			name: "satisfiable bounds",
			locks: func(t *testing.T) []gate.Component {
				gt, err := gate.NewLock("score", gate.LockGreaterThan, 5)
				require.NoError(t, err)
				lt, err := gate.NewLock("score", gate.LockLessThan, 10)
				require.NoError(t, err)
				return []gate.Component{gt, lt}
			},
			wantCount: 0,
		},
		{
			name: "different properties never conflict",
			locks: func(t *testing.T) []gate.Component {
				a, err := gate.NewLock("score", gate.LockEquals, 1)
				require.NoError(t, err)
				b, err := gate.NewLock("rating", gate.LockEquals, 2)
				require.NoError(t, err)
				return []gate.Component{a, b}
			},
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := stage.New("s", []*gate.Gate{mustGate(t, "g", tt.locks(t)...)})
			require.NoError(t, err)

			issues := Lint(buildProcess(t, []*stage.Stage{st}))
			require.Len(t, issues, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Contains(t, issues[0].Description, tt.wantDetail)
			}
		})
	}
}

func TestLintNestedGateConflicts(t *testing.T) {
	a, err := gate.NewLock("status", gate.LockEquals, "open")
	require.NoError(t, err)
	b, err := gate.NewLock("status", gate.LockEquals, "closed")
	require.NoError(t, err)
	inner := mustGate(t, "inner", a, b)

	ok, err := gate.NewLock("title", gate.LockNotEmpty, nil)
	require.NoError(t, err)
	outer := mustGate(t, "outer", ok, inner)

	st, err := stage.New("s", []*gate.Gate{outer})
	require.NoError(t, err)

	issues := Lint(buildProcess(t, []*stage.Stage{st}))
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Description, "Gate 'inner'")
}

func TestLintDanglingTarget(t *testing.T) {
	lock, err := gate.NewLock("title", gate.LockNotEmpty, nil)
	require.NoError(t, err)
	g, err := gate.NewGate("forward", []gate.Component{lock}, gate.WithTargetStage("shipping"))
	require.NoError(t, err)
	st, err := stage.New("intake", []*gate.Gate{g})
	require.NoError(t, err)

	issues := Lint(buildProcess(t, []*stage.Stage{st}))
	require.Len(t, issues, 1)
	assert.Equal(t, IssueDanglingTarget, issues[0].Type)
	assert.Contains(t, issues[0].Description, "unknown stage 'shipping'")
}

func TestLintUnknownValidator(t *testing.T) {
	lock, err := gate.NewCustomLock("score", "never_registered", nil)
	require.NoError(t, err)
	st, err := stage.New("s", []*gate.Gate{mustGate(t, "g", lock)})
	require.NoError(t, err)

	issues := Lint(buildProcess(t, []*stage.Stage{st}))
	require.Len(t, issues, 1)
	assert.Equal(t, IssueUnknownValidator, issues[0].Type)

	reg := gate.NewRegistry()
	reg.Register("never_registered", func(value, expected any) bool { return true })
	issues = Lint(buildProcess(t, []*stage.Stage{st}, process.WithValidators(reg)))
	assert.Empty(t, issues)
}

func TestLintAccumulates(t *testing.T) {
	empty, err := stage.New("empty", nil)
	require.NoError(t, err)

	a, err := gate.NewLock("status", gate.LockEquals, "x")
	require.NoError(t, err)
	b, err := gate.NewLock("status", gate.LockEquals, "y")
	require.NoError(t, err)
	conflicted, err := stage.New("conflicted", []*gate.Gate{mustGate(t, "g", a, b)})
	require.NoError(t, err)

	issues := Lint(buildProcess(t, []*stage.Stage{empty, conflicted}))
	assert.Equal(t, []IssueType{IssueEmptyStage, IssueLogicalConflict}, issueTypes(issues))
}
