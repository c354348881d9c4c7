package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagegate/stagegate/pkg/element"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(n int) *int           { return &n }

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid schema",
			cfg: Config{
				Name:     "intake",
				Required: []string{"title"},
				Optional: []string{"notes"},
				Defaults: map[string]any{"notes": ""},
			},
		},
		{
			name:    "empty name",
			cfg:     Config{Required: []string{"title"}},
			wantErr: true,
		},
		{
			name: "field both required and optional",
			cfg: Config{
				Name:     "intake",
				Required: []string{"title"},
				Optional: []string{"title"},
			},
			wantErr: true,
		},
		{
			name: "default for non-optional field",
			cfg: Config{
				Name:     "intake",
				Required: []string{"title"},
				Defaults: map[string]any{"title": "untitled"},
			},
			wantErr: true,
		},
		{
			name: "unknown field type",
			cfg: Config{
				Name:       "intake",
				FieldTypes: map[string]string{"title": "text"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.Name, s.Name)
		})
	}
}

func TestValidate(t *testing.T) {
	s, err := New(Config{
		Name:     "submission",
		Required: []string{"title", "owner.email"},
		Optional: []string{"priority", "score"},
		FieldTypes: map[string]string{
			"title":    "string",
			"score":    "number",
			"priority": "string",
		},
		Rules: map[string]FieldRules{
			"score": {Min: floatPtr(0), Max: floatPtr(100)},
			"title": {MinLength: intPtr(3), MaxLength: intPtr(40), Pattern: `[A-Z]`},
			"priority": {
				Enum: []any{"low", "normal", "high"},
			},
		},
	})
	require.NoError(t, err)

	tests := []struct {
		name       string
		record     map[string]any
		wantErrors []string
	}{
		{
			name: "conforming element",
			record: map[string]any{
				"title":    "Quarterly report",
				"owner":    map[string]any{"email": "a@example.com"},
				"score":    88.5,
				"priority": "high",
			},
		},
		{
			name: "optional fields absent",
			record: map[string]any{
				"title": "Quarterly report",
				"owner": map[string]any{"email": "a@example.com"},
			},
		},
		{
			name:   "missing required fields accumulate",
			record: map[string]any{},
			wantErrors: []string{
				"Required field missing: title",
				"Required field missing: owner.email",
			},
		},
		{
			name: "wrong type",
			record: map[string]any{
				"title": 42,
				"owner": map[string]any{"email": "a@example.com"},
			},
			wantErrors: []string{"Field 'title' has invalid type: expected string"},
		},
		{
			name: "below minimum",
			record: map[string]any{
				"title": "Quarterly report",
				"owner": map[string]any{"email": "a@example.com"},
				"score": -5,
			},
			wantErrors: []string{"Field 'score' below minimum value 0"},
		},
		{
			name: "pattern miss",
			record: map[string]any{
				"title": "quarterly report",
				"owner": map[string]any{"email": "a@example.com"},
			},
			wantErrors: []string{"Field 'title' does not match required pattern"},
		},
		{
			name: "enum violation",
			record: map[string]any{
				"title":    "Quarterly report",
				"owner":    map[string]any{"email": "a@example.com"},
				"priority": "urgent",
			},
			wantErrors: []string{"Field 'priority' must be one of: [low normal high]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := s.Validate(element.New(tt.record))
			assert.Equal(t, tt.wantErrors, errs)
		})
	}
}

func TestValidateNumericRules(t *testing.T) {
	s, err := New(Config{
		Name: "scores",
		Rules: map[string]FieldRules{
			"score": {Min: floatPtr(0), Max: floatPtr(10)},
		},
	})
	require.NoError(t, err)

	// Numeric strings compare numerically.
	errs := s.Validate(element.New(map[string]any{"score": "7"}))
	assert.Empty(t, errs)

	errs = s.Validate(element.New(map[string]any{"score": "11"}))
	assert.Equal(t, []string{"Field 'score' above maximum value 10"}, errs)
}

func TestValidateInvalidPattern(t *testing.T) {
	s, err := New(Config{
		Name: "bad",
		Rules: map[string]FieldRules{
			"code": {Pattern: "(["},
		},
	})
	require.NoError(t, err)

	errs := s.Validate(element.New(map[string]any{"code": "X1"}))
	assert.Equal(t, []string{"Invalid pattern for field 'code'"}, errs)
}

func TestValidateNullType(t *testing.T) {
	s, err := New(Config{
		Name:       "nullable",
		FieldTypes: map[string]string{"deleted_at": "null", "name": "string"},
	})
	require.NoError(t, err)

	errs := s.Validate(element.New(map[string]any{"deleted_at": nil, "name": nil}))
	assert.Equal(t, []string{"Field 'name' has invalid type: expected string"}, errs)
}

func TestAllFieldsAndDefaults(t *testing.T) {
	s, err := New(Config{
		Name:     "intake",
		Required: []string{"title"},
		Optional: []string{"notes", "priority"},
		Defaults: map[string]any{"priority": "normal"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "notes", "priority"}, s.AllFields())

	v, ok := s.DefaultValue("priority")
	require.True(t, ok)
	assert.Equal(t, "normal", v)

	_, ok = s.DefaultValue("notes")
	assert.False(t, ok)
}
