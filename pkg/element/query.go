package element

import (
	"fmt"

	"github.com/itchyny/gojq"
)

// Query runs a jq expression against the element's record and returns the
// first result. It is intended for ad-hoc extraction by callers (CLI output
// filtering, diagnostics); lock evaluation uses plain property paths.
func Query(el Element, expression string) (any, error) {
	return RunQuery(expression, el.ToMap())
}

// RunQuery runs a jq expression against arbitrary data and returns the
// first result, or nil when the query produces nothing.
func RunQuery(expression string, data any) (any, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}

	iter := code.Run(data)
	v, ok := iter.Next()
	if !ok {
		return nil, nil
	}
	if qerr, isErr := v.(error); isErr {
		return nil, fmt.Errorf("run query: %w", qerr)
	}
	return v, nil
}
