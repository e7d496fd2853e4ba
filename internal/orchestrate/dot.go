package orchestrate

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// WriteDOT renders a node set as a graphviz digraph: one box per node,
// solid edges for data flow, dashed edges for error flow, dotted edges
// for bare ordering dependencies. Inputs nobody in the set produces are
// drawn from a "context" node.
func WriteDOT(w io.Writer, name string, nodes []pipeline.Node) error {
	type edge struct {
		from, to, label, style string
	}

	producers := make(map[domain.PortID]string)
	errorPorts := make(map[domain.PortID]bool)
	for _, n := range nodes {
		for _, p := range n.Outputs() {
			producers[p.ID()] = n.ID()
		}
		for _, p := range n.ErrorOutputs() {
			producers[p.ID()] = n.ID()
			errorPorts[p.ID()] = true
		}
	}

	var edges []edge
	contextFeeds := false
	for _, n := range nodes {
		for _, p := range n.Inputs() {
			from, ok := producers[p.ID()]
			if !ok {
				from = "context"
				contextFeeds = true
			}
			style := "solid"
			if errorPorts[p.ID()] {
				style = "dashed"
			}
			edges = append(edges, edge{from: from, to: n.ID(), label: p.String(), style: style})
		}
		for _, pred := range n.Predecessors() {
			edges = append(edges, edge{from: pred.ID(), to: n.ID(), style: "dotted"})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		if edges[i].to != edges[j].to {
			return edges[i].to < edges[j].to
		}
		return edges[i].label < edges[j].label
	})

	if _, err := fmt.Fprintf(w, "digraph %q {\n", name); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "  node [shape=box];"); err != nil {
		return err
	}
	if contextFeeds {
		if _, err := fmt.Fprintln(w, "  \"context\" [shape=ellipse];"); err != nil {
			return err
		}
	}
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID())
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := fmt.Fprintf(w, "  %q;\n", id); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if _, err := fmt.Fprintf(w, "  %q -> %q [label=%q, style=%s];\n",
			e.from, e.to, e.label, e.style); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func writeDOTFile(path, name string, nodes []pipeline.Node) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteDOT(f, name, nodes)
}
