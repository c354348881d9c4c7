// Package visualize renders a process's stage sequence as Mermaid or
// Graphviz DOT text for documentation and review.
package visualize

import (
	"fmt"
	"strings"

	"github.com/stagegate/stagegate/pkg/process"
	"github.com/stagegate/stagegate/pkg/stage"
)

// Mermaid renders the process as a left-to-right Mermaid flowchart. Each
// stage node carries its gate and lock counts; edges follow process order.
func Mermaid(p *process.Process) string {
	var b strings.Builder
	b.WriteString("flowchart LR\n")

	stages := p.Stages()
	for i, st := range stages {
		fmt.Fprintf(&b, "    s%d[\"%s\"]\n", i, nodeLabel(st))
	}
	for i := 0; i < len(stages)-1; i++ {
		fmt.Fprintf(&b, "    s%d --> s%d\n", i, i+1)
	}
	if final := len(stages) - 1; final >= 0 {
		fmt.Fprintf(&b, "    s%d --> done((completed))\n", final)
	}
	return b.String()
}

// nodeLabel summarizes a stage for a diagram node.
func nodeLabel(st *stage.Stage) string {
	locks := 0
	for _, g := range st.Gates {
		locks += g.Complexity()
	}
	parts := []string{st.Name}
	if st.Schema != nil {
		parts = append(parts, fmt.Sprintf("schema: %s", st.Schema.Name))
	}
	if len(st.Gates) > 0 {
		parts = append(parts, fmt.Sprintf("%d gates / %d locks", len(st.Gates), locks))
	}
	return strings.Join(parts, "<br/>")
}
