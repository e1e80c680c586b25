// Package result implements the framework's three output sinks
// (spec.md §6): a JSON result document per analysis, Graphviz DOT
// diagnostic artifacts for the class hierarchy and ICFG, and an optional
// SQLite results database adapted from the teacher's WriteDB (db.go).
package result

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"goflow/internal/icfg"
	"goflow/internal/ids"
	"goflow/internal/problem"
	"goflow/internal/solver"
)

// NodeResult is one ICFG node's contribution to an analysis's JSON
// document, spec.md §6's documented shape:
// {analysis, results: [{node_id, facts, edge_values?}, ...]}.
type NodeResult struct {
	NodeID     string   `json:"node_id"`
	Facts      []string `json:"facts"`
	EdgeValues []string `json:"edge_values,omitempty"`
}

// Document is the top-level JSON result document for one analysis.
type Document struct {
	Analysis string       `json:"analysis"`
	Results  []NodeResult `json:"results"`
}

// FromIFDS projects an IFDSResult into the documented JSON shape, in
// node-id sorted order so two runs over the same input produce
// byte-identical output (spec.md §8's determinism property).
func FromIFDS(g *icfg.Graph, analysis string, res *solver.IFDSResult) Document {
	doc := Document{Analysis: analysis}
	for id, facts := range res.Facts {
		nr := NodeResult{NodeID: g.Node(id).StmtID}
		for _, f := range sortedFactKeys(facts) {
			nr.Facts = append(nr.Facts, facts[f].Key())
		}
		doc.Results = append(doc.Results, nr)
	}
	sortResults(doc.Results)
	return doc
}

// FromIDE projects an IDEResult, attaching each fact's edge value
// alongside it.
func FromIDE(g *icfg.Graph, analysis string, res *solver.IDEResult) Document {
	doc := Document{Analysis: analysis}
	for id, facts := range res.Facts {
		nr := NodeResult{NodeID: g.Node(id).StmtID}
		for _, key := range sortedFactKeys(facts) {
			fact := facts[key]
			nr.Facts = append(nr.Facts, fact.Key())
			if ev, ok := res.Values[id][key]; ok {
				nr.EdgeValues = append(nr.EdgeValues, fmt.Sprintf("%v", ev))
			}
		}
		doc.Results = append(doc.Results, nr)
	}
	sortResults(doc.Results)
	return doc
}

// FromIntraMonotone projects a single function's IntraMonotoneResult,
// keying each instruction by its stable id (spec.md §6's node_id) and
// rendering its lattice value with fmt, since IntraMonotone's
// problem.LatticeValue carries no Fact-style Key capability of its own.
func FromIntraMonotone(analysis string, res *solver.IntraMonotoneResult) Document {
	doc := Document{Analysis: analysis}
	for instr, val := range res.Values {
		doc.Results = append(doc.Results, NodeResult{
			NodeID: ids.Instr(instr),
			Facts:  []string{fmt.Sprintf("%v", val)},
		})
	}
	sortResults(doc.Results)
	return doc
}

// FromInterMonotone projects an InterMonotoneResult, one NodeResult per
// (node, call-string context) pair reached.
func FromInterMonotone(g *icfg.Graph, analysis string, res *solver.InterMonotoneResult) Document {
	doc := Document{Analysis: analysis}
	for id, byCtx := range res.Values {
		for ctxKey, val := range byCtx {
			nodeID := g.Node(id).StmtID
			if ctxKey != "" {
				nodeID = fmt.Sprintf("%s@%s", nodeID, ctxKey)
			}
			doc.Results = append(doc.Results, NodeResult{
				NodeID: nodeID,
				Facts:  []string{fmt.Sprintf("%v", val)},
			})
		}
	}
	sortResults(doc.Results)
	return doc
}

func sortedFactKeys(facts map[string]problem.Fact) []string {
	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortResults(results []NodeResult) {
	sort.Slice(results, func(i, j int) bool { return results[i].NodeID < results[j].NodeID })
}

// WriteJSON marshals doc to w with stable field order and indentation.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
