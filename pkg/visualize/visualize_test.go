package visualize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagegate/stagegate/pkg/gate"
	"github.com/stagegate/stagegate/pkg/process"
	"github.com/stagegate/stagegate/pkg/schema"
	"github.com/stagegate/stagegate/pkg/stage"
)

func demoProcess(t *testing.T) *process.Process {
	t.Helper()

	lock, err := gate.NewLock("title", gate.LockNotEmpty, nil)
	require.NoError(t, err)
	g, err := gate.NewGate("basics", []gate.Component{lock})
	require.NoError(t, err)

	sc, err := schema.New(schema.Config{Name: "review_schema", Required: []string{"reviewer"}})
	require.NoError(t, err)

	intake, err := stage.New("intake", []*gate.Gate{g})
	require.NoError(t, err)
	review, err := stage.New("review", nil, stage.WithSchema(sc))
	require.NoError(t, err)

	p, err := process.New("triage", []*stage.Stage{intake, review})
	require.NoError(t, err)
	return p
}

func TestMermaid(t *testing.T) {
	out := Mermaid(demoProcess(t))

	assert.True(t, strings.HasPrefix(out, "flowchart LR\n"))
	assert.Contains(t, out, `s0["intake<br/>1 gates / 1 locks"]`)
	assert.Contains(t, out, `s1["review<br/>schema: review_schema"]`)
	assert.Contains(t, out, "s0 --> s1")
	assert.Contains(t, out, "s1 --> done((completed))")
}

func TestDOT(t *testing.T) {
	out := DOT(demoProcess(t))

	assert.True(t, strings.HasPrefix(out, `digraph "triage" {`))
	assert.Contains(t, out, "rankdir=LR;")
	assert.Contains(t, out, `s0 [label="intake\n1 gates / 1 locks"];`)
	assert.Contains(t, out, "s0 -> s1;")
	assert.Contains(t, out, "s1 -> done;")
	assert.True(t, strings.HasSuffix(out, "}\n"))
}
