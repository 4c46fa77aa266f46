// Package graph schedules texture operator networks. A Graph is a DAG
// of operator nodes; Recompute linearizes it with a topological sort
// and issues one dispatch per node in dependency order, pooling the
// intermediate textures by reference count so that a texture lives
// exactly from its producing dispatch until its last consumer ran.
package graph

import (
	"errors"
	"fmt"

	"github.com/texforge/texforge"
	"github.com/texforge/texforge/texel"
)

// ErrCycle is returned by Linearize and Recompute when the graph
// contains a dependency cycle.
var ErrCycle = errors.New("graph: dependency cycle")

// binding records one input edge of a node.
type binding struct {
	from *Node
}

// Node is one operator instance in a graph. Create nodes with
// Graph.AddNode; the zero value is not usable.
type Node struct {
	Name string
	op   texel.Operator

	in  []binding // parallel to op.Inputs()
	out *texel.Texture

	// scheduling state, valid during Recompute only
	consumers int
	order     int
}

// Op returns the operator the node dispatches.
func (n *Node) Op() texel.Operator { return n.op }

// Output returns the node's output texture from the last Recompute, or
// nil if the node was intermediate and its texture was recycled. Only
// nodes marked with KeepOutput retain their textures.
func (n *Node) Output() *texel.Texture { return n.out }

// Graph is a mutable operator network. Not safe for concurrent
// mutation; Recompute issues dispatches sequentially, which is what
// upholds the producer/consumer barrier between passes.
type Graph struct {
	nodes  []*Node
	keep   map[*Node]bool
	width  int
	height int
}

// New returns an empty graph whose textures are width x height texels.
func New(width, height int) *Graph {
	return &Graph{keep: make(map[*Node]bool), width: width, height: height}
}

// AddNode adds an operator instance to the graph with all inputs
// unbound. name is a free-form label used in errors and logs.
func (g *Graph) AddNode(name string, op texel.Operator) *Node {
	n := &Node{Name: name, op: op, in: make([]binding, len(op.Inputs()))}
	g.nodes = append(g.nodes, n)
	return n
}

// KeepOutput marks a node's output texture as externally observed, so
// Recompute does not recycle it once downstream consumers finish.
// Sink nodes (no consumers) are always kept.
func (g *Graph) KeepOutput(n *Node) { g.keep[n] = true }

// Connect binds the output of from to the named input socket of to.
// Socket types must agree, with Dynamic compatible with anything.
func (g *Graph) Connect(from, to *Node, socket string) error {
	if from == nil || to == nil {
		return errors.New("graph: nil node in connect")
	}
	specs := to.op.Inputs()
	for i, spec := range specs {
		if spec.Name != socket {
			continue
		}
		out := from.op.Output()
		if spec.Type != texel.Dynamic && out.Type != texel.Dynamic && spec.Type != out.Type {
			return fmt.Errorf("graph: connecting %s output %q (%s) to %s input %q (%s): type mismatch",
				from.Name, out.Name, out.Type, to.Name, socket, spec.Type)
		}
		to.in[i] = binding{from: from}
		return nil
	}
	return fmt.Errorf("graph: node %s has no input socket %q", to.Name, socket)
}

// Disconnect unbinds the named input socket of n.
func (g *Graph) Disconnect(n *Node, socket string) error {
	for i, spec := range n.op.Inputs() {
		if spec.Name == socket {
			n.in[i] = binding{}
			return nil
		}
	}
	return fmt.Errorf("graph: node %s has no input socket %q", n.Name, socket)
}

// Linearize returns the nodes in dependency order using Kahn's
// algorithm. Returns ErrCycle if not a DAG.
func (g *Graph) Linearize() ([]*Node, error) {
	indeg := make(map[*Node]int, len(g.nodes))
	succ := make(map[*Node][]*Node, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n] += 0
		for _, b := range n.in {
			if b.from == nil {
				continue
			}
			indeg[n]++
			succ[b.from] = append(succ[b.from], n)
		}
	}
	queue := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if indeg[n] == 0 {
			queue = append(queue, n)
		}
	}
	order := make([]*Node, 0, len(g.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		n.order = len(order)
		order = append(order, n)
		for _, s := range succ[n] {
			indeg[s]--
			if indeg[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
	if len(order) != len(g.nodes) {
		return nil, ErrCycle
	}
	return order, nil
}

// outputFormat resolves the pixel format of a node's output texture.
// Dynamic outputs take the widest format among bound inputs, defaulting
// to grayscale when a pure generator declares Dynamic.
func (n *Node) outputFormat() texel.Format {
	spec := n.op.Output()
	if spec.Type != texel.Dynamic {
		return spec.Type.Format()
	}
	format := texel.Grayscale.Format()
	for _, b := range n.in {
		if b.from == nil {
			continue
		}
		if f := b.from.outputFormat(); f.Channels() > format.Channels() {
			format = f
		}
	}
	return format
}

// Recompute executes the whole graph. Intermediate textures are
// acquired from the context pool when their producer runs and released
// after their last consumer, unless kept via KeepOutput.
func (g *Graph) Recompute(ctx *texel.Context) error {
	order, err := g.Linearize()
	if err != nil {
		return err
	}
	log := texforge.Logger()
	for _, n := range g.nodes {
		n.consumers = 0
	}
	for _, n := range g.nodes {
		for _, b := range n.in {
			if b.from != nil {
				b.from.consumers++
			}
		}
	}
	for _, n := range order {
		specs := n.op.Inputs()
		inputs := make([]*texel.Texture, len(specs))
		for i, b := range n.in {
			if b.from == nil {
				if !specs[i].Optional {
					return fmt.Errorf("graph: node %s required input %q unbound", n.Name, specs[i].Name)
				}
				continue
			}
			inputs[i] = b.from.out
		}
		n.out = ctx.Pool.AcquireTexture(g.width, g.height, n.outputFormat())
		log.Debug("dispatch", "node", n.Name, "op", n.op.Name(), "order", n.order)
		if err := texel.Dispatch(ctx, n.op, inputs, n.out); err != nil {
			return fmt.Errorf("graph: node %s: %w", n.Name, err)
		}
		if err := ctx.Pool.AssertAllReleased(); err != nil {
			return fmt.Errorf("graph: node %s: %w", n.Name, err)
		}
		// retire producers whose last consumer just ran
		for _, b := range n.in {
			p := b.from
			if p == nil {
				continue
			}
			p.consumers--
			if p.consumers == 0 && !g.keep[p] {
				ctx.Pool.ReleaseTexture(p.out)
				p.out = nil
			}
		}
	}
	return nil
}
