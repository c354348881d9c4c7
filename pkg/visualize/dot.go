package visualize

import (
	"fmt"
	"strings"

	"github.com/stagegate/stagegate/pkg/process"
)

// DOT renders the process as a Graphviz digraph. Stage nodes are boxes with
// gate and lock counts; the terminal node is a doublecircle.
func DOT(p *process.Process) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", p.Name())
	b.WriteString("    rankdir=LR;\n")
	b.WriteString("    node [shape=box];\n")

	stages := p.Stages()
	for i, st := range stages {
		// %q renders the newline as \n, which DOT treats as a line break.
		label := strings.ReplaceAll(nodeLabel(st), "<br/>", "\n")
		fmt.Fprintf(&b, "    s%d [label=%q];\n", i, label)
	}
	b.WriteString("    done [label=\"completed\", shape=doublecircle];\n")

	for i := 0; i < len(stages)-1; i++ {
		fmt.Fprintf(&b, "    s%d -> s%d;\n", i, i+1)
	}
	if final := len(stages) - 1; final >= 0 {
		fmt.Fprintf(&b, "    s%d -> done;\n", final)
	}
	b.WriteString("}\n")
	return b.String()
}
