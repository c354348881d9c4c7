package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagegate/stagegate/pkg/element"
	"github.com/stagegate/stagegate/pkg/gate"
	"github.com/stagegate/stagegate/pkg/schema"
	"github.com/stagegate/stagegate/pkg/status"
)

func mustGate(t *testing.T, name, path string, typ gate.LockType, expected any) *gate.Gate {
	t.Helper()
	lock, err := gate.NewLock(path, typ, expected)
	require.NoError(t, err)
	g, err := gate.NewGate(name, []gate.Component{lock})
	require.NoError(t, err)
	return g
}

func mustSchema(t *testing.T, name string, required ...string) *schema.Schema {
	t.Helper()
	s, err := schema.New(schema.Config{Name: name, Required: required})
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	g := mustGate(t, "g1", "a", gate.LockNotEmpty, nil)

	tests := []struct {
		name      string
		stageName string
		gates     []*gate.Gate
		wantErr   bool
	}{
		{
			name:      "valid stage",
			stageName: "intake",
			gates:     []*gate.Gate{g},
		},
		{
			name:      "schema-only stage",
			stageName: "intake",
			gates:     nil,
		},
		{
			name:      "empty name",
			stageName: "",
			wantErr:   true,
		},
		{
			name:      "duplicate gate names",
			stageName: "intake",
			gates:     []*gate.Gate{g, g},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := New(tt.stageName, tt.gates)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.stageName, st.Name)
		})
	}
}

func TestEvaluate(t *testing.T) {
	sc := mustSchema(t, "intake_schema", "title")
	gatePass := func(t *testing.T) *gate.Gate { return mustGate(t, "has_title", "title", gate.LockNotEmpty, nil) }
	gateFail := func(t *testing.T) *gate.Gate { return mustGate(t, "is_urgent", "urgent", gate.LockEquals, true) }

	el := element.New(map[string]any{"title": "thing"})

	tests := []struct {
		name           string
		build          func(t *testing.T) *Stage
		wantPassed     bool
		wantCompletion float64
	}{
		{
			name: "schema and gates pass",
			build: func(t *testing.T) *Stage {
				st, err := New("intake", []*gate.Gate{gatePass(t)}, WithSchema(sc))
				require.NoError(t, err)
				return st
			},
			wantPassed:     true,
			wantCompletion: 1.0,
		},
		{
			name: "gate failure fails the stage",
			build: func(t *testing.T) *Stage {
				st, err := New("intake", []*gate.Gate{gatePass(t), gateFail(t)}, WithSchema(sc))
				require.NoError(t, err)
				return st
			},
			wantPassed:     false,
			wantCompletion: 0.75, // half the gates, full schema
		},
		{
			name: "allow partial passes on one gate",
			build: func(t *testing.T) *Stage {
				st, err := New("intake", []*gate.Gate{gatePass(t), gateFail(t)}, WithSchema(sc), WithAllowPartial())
				require.NoError(t, err)
				return st
			},
			wantPassed:     true,
			wantCompletion: 0.75,
		},
		{
			name: "no gates no schema always passes",
			build: func(t *testing.T) *Stage {
				st, err := New("open", nil)
				require.NoError(t, err)
				return st
			},
			wantPassed:     true,
			wantCompletion: 1.0,
		},
		{
			name: "all gates fail",
			build: func(t *testing.T) *Stage {
				st, err := New("intake", []*gate.Gate{gateFail(t)})
				require.NoError(t, err)
				return st
			},
			wantPassed:     false,
			wantCompletion: 0.5, // no gate passed, schema vacuously valid
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.build(t).Evaluate(el, nil)
			assert.Equal(t, tt.wantPassed, res.OverallPassed)
			assert.InDelta(t, tt.wantCompletion, res.Completion, 1e-9)
		})
	}
}

func TestEvaluateSchemaFailureStillRunsGates(t *testing.T) {
	sc := mustSchema(t, "s", "missing_field")
	g := mustGate(t, "has_title", "title", gate.LockNotEmpty, nil)
	st, err := New("intake", []*gate.Gate{g}, WithSchema(sc))
	require.NoError(t, err)

	res := st.Evaluate(element.New(map[string]any{"title": "thing"}), nil)

	assert.False(t, res.OverallPassed)
	assert.False(t, res.SchemaValid)
	assert.Equal(t, []string{"Required field missing: missing_field"}, res.SchemaErrors)
	require.Len(t, res.GateResults, 1, "gates run even when the schema fails")
	assert.True(t, res.GateResults[0].Passed)
	assert.InDelta(t, 0.5, res.Completion, 1e-9)
	assert.Equal(t, []string{"has_title"}, res.PassedGates())
	assert.Empty(t, res.FailedGates())
}

func TestEvaluateCollectsRemedies(t *testing.T) {
	g1 := mustGate(t, "urgent", "urgent", gate.LockEquals, true)
	g2 := mustGate(t, "scored", "score", gate.LockGreaterThan, 5)
	st, err := New("triage", []*gate.Gate{g1, g2})
	require.NoError(t, err)

	res := st.Evaluate(element.New(map[string]any{"score": 1}), nil)

	assert.False(t, res.OverallPassed)
	assert.Equal(t, []string{
		"Set urgent to 'true'",
		"Increase score to be greater than 5",
	}, res.Actions)
	assert.Len(t, res.FailureMessages(), 2)
}

func TestIsCompatibleWithElement(t *testing.T) {
	sc := mustSchema(t, "s", "title", "owner.email")
	st, err := New("intake", nil, WithSchema(sc))
	require.NoError(t, err)

	assert.True(t, st.IsCompatibleWithElement(element.New(map[string]any{
		"title": "x",
		"owner": map[string]any{"email": "a@b.c"},
	})))
	assert.False(t, st.IsCompatibleWithElement(element.New(map[string]any{
		"title": "x",
	})))

	bare, err := New("open", nil)
	require.NoError(t, err)
	assert.True(t, bare.IsCompatibleWithElement(element.New(nil)))
}

func TestResolveActionsForState(t *testing.T) {
	st, err := New("review", nil, WithTemplates(map[status.State][]ActionTemplate{
		status.StateFulfilling: {
			{
				Type:        status.ActionCompleteField,
				Description: "Stage is {completion} complete",
				Priority:    status.PriorityHigh,
			},
		},
	}))
	require.NoError(t, err)

	actions := st.ResolveActionsForState(status.StateFulfilling, element.New(nil), map[string]any{"completion": 0.25})
	require.Len(t, actions, 1)
	assert.Equal(t, "Stage is 0.25 complete", actions[0].Description)
	assert.Equal(t, status.PriorityHigh, actions[0].Priority)

	assert.Nil(t, st.ResolveActionsForState(status.StateAwaiting, element.New(nil), nil))
}

func TestPropertyPaths(t *testing.T) {
	sc := mustSchema(t, "s", "title")
	g := mustGate(t, "g", "owner.email", gate.LockExists, true)
	st, err := New("intake", []*gate.Gate{g}, WithSchema(sc))
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "owner.email"}, st.PropertyPaths())
}
