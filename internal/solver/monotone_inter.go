package solver

import (
	"strconv"
	"strings"

	"golang.org/x/tools/go/ssa"

	"goflow/internal/icfg"
	"goflow/internal/problem"
)

// Context is a bounded call-string (spec.md §4.5's "call-string
// abstraction of bounded depth k"): the sequence of call-site node ids
// on the path from an entry point to the current node, most recent
// call last, truncated to the configured depth — the same
// (function, context) worklist shape 1homsi/gorisk's BuildCSCallGraph
// uses for its own k-CFA call graph construction.
type Context []icfg.NodeID

func (c Context) key() string {
	var b strings.Builder
	for i, n := range c {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(n)))
	}
	return b.String()
}

func (c Context) push(site icfg.NodeID, k int) Context {
	if k <= 0 {
		return nil
	}
	next := append(append(Context{}, c...), site)
	if len(next) > k {
		next = next[len(next)-k:]
	}
	return next
}

func (c Context) pop() Context {
	if len(c) == 0 {
		return c
	}
	return c[:len(c)-1]
}

// InterMonotoneResult holds one lattice value per (node, context),
// spec.md §4.5's context-sensitive output.
type InterMonotoneResult struct {
	Values    map[icfg.NodeID]map[string]problem.LatticeValue
	Cancelled bool
}

type interItem struct {
	node icfg.NodeID
	ctx  Context
}

// RunInterMonotone solves p over g with call-string depth k, spec.md
// §4.5's Inter Monotone Solver: depth is the k in k-CFA; k<=0 collapses
// every context to the empty string, i.e. context-insensitive.
func RunInterMonotone(g *icfg.Graph, p problem.InterMonotone, entries []*ssa.Function, k int, cancel *CancelToken) *InterMonotoneResult {
	res := &InterMonotoneResult{Values: make(map[icfg.NodeID]map[string]problem.LatticeValue)}

	set := func(n icfg.NodeID, ctx Context, v problem.LatticeValue) (problem.LatticeValue, bool) {
		bucket, ok := res.Values[n]
		if !ok {
			bucket = make(map[string]problem.LatticeValue)
			res.Values[n] = bucket
		}
		key := ctx.key()
		cur, exists := bucket[key]
		joined := v
		if exists {
			joined = cur.Join(v)
			if joined.Equal(cur) {
				return cur, false
			}
		}
		bucket[key] = joined
		return joined, true
	}

	var worklist []interItem
	push := func(n icfg.NodeID, ctx Context, v problem.LatticeValue) {
		if _, changed := set(n, ctx, v); changed {
			worklist = append(worklist, interItem{node: n, ctx: ctx})
		}
	}

	for _, fn := range entries {
		entry, ok := g.Entry(fn)
		if !ok {
			continue
		}
		push(entry, nil, p.Transfer(g.Node(entry), p.InitialValue()))
	}

	for len(worklist) > 0 {
		if cancel.Cancelled() {
			res.Cancelled = true
			break
		}
		item := worklist[0]
		worklist = worklist[1:]
		outVal := res.Values[item.node][item.ctx.key()]

		for _, edge := range g.Successors(item.node) {
			var nextCtx Context
			switch edge.Kind {
			case icfg.Call:
				nextCtx = item.ctx.push(item.node, k)
			case icfg.Return:
				nextCtx = item.ctx.pop()
			default:
				nextCtx = item.ctx
			}
			if edge.Kind == icfg.Unresolved {
				continue
			}
			next := p.Transfer(g.Node(edge.To), outVal)
			push(edge.To, nextCtx, next)
		}
	}

	return res
}
