package sim

import (
	"fmt"
	"sort"
)

// NodeKind classifies a node's role in the fabric.
type NodeKind int

const (
	// NodeServer is a traffic endpoint. Only servers are valid connection
	// endpoints.
	NodeServer NodeKind = iota
	// NodeTor is a top-of-rack switch.
	NodeTor
	// NodeCore is a core (spine) switch.
	NodeCore
)

func (k NodeKind) String() string {
	switch k {
	case NodeServer:
		return "server"
	case NodeTor:
		return "tor"
	case NodeCore:
		return "core"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is a device in the topology.
type Node struct {
	ID     int
	Kind   NodeKind
	Failed bool
}

// Link is a directed edge with a fixed capacity and the set of flows
// currently routed over it.
type Link struct {
	ID       int
	From     int
	To       int
	Capacity float64
	Failed   bool

	flows map[int]*Flow
}

// Flows returns the flows currently routed over the link, sorted by flow ID
// for deterministic iteration.
func (l *Link) Flows() []*Flow {
	out := make([]*Flow, 0, len(l.flows))
	for _, f := range l.flows {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NumFlows returns the number of flows currently routed over the link.
func (l *Link) NumFlows() int { return len(l.flows) }

// AllocatedBandwidth returns the sum of bandwidth currently allocated to the
// link's flows.
func (l *Link) AllocatedBandwidth() float64 {
	total := 0.0
	for _, f := range l.flows {
		total += f.Bandwidth
	}
	return total
}

func (l *Link) addFlow(f *Flow)    { l.flows[f.ID] = f }
func (l *Link) removeFlow(f *Flow) { delete(l.flows, f.ID) }

// Network owns the nodes and links of one simulation run, including the
// authoritative failed-node and failed-link state.
type Network struct {
	nodes      map[int]*Node
	links      map[int]*Link
	linkByPair map[[2]int]*Link
	incident   map[int][]*Link

	nextLinkID int
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		nodes:      make(map[int]*Node),
		links:      make(map[int]*Link),
		linkByPair: make(map[[2]int]*Link),
		incident:   make(map[int][]*Link),
	}
}

// AddNode registers a node. Duplicate IDs panic: the topology builder is the
// only caller and a collision is a construction bug.
func (n *Network) AddNode(id int, kind NodeKind) *Node {
	if _, ok := n.nodes[id]; ok {
		panic(fmt.Sprintf("duplicate node id %d", id))
	}
	node := &Node{ID: id, Kind: kind}
	n.nodes[id] = node
	return node
}

// AddLink registers a directed link between two existing nodes.
func (n *Network) AddLink(from, to int, capacity float64) *Link {
	if _, ok := n.nodes[from]; !ok {
		panic(fmt.Sprintf("link source node %d does not exist", from))
	}
	if _, ok := n.nodes[to]; !ok {
		panic(fmt.Sprintf("link target node %d does not exist", to))
	}
	pair := [2]int{from, to}
	if _, ok := n.linkByPair[pair]; ok {
		panic(fmt.Sprintf("duplicate link %d -> %d", from, to))
	}
	l := &Link{
		ID:       n.nextLinkID,
		From:     from,
		To:       to,
		Capacity: capacity,
		flows:    make(map[int]*Flow),
	}
	n.nextLinkID++
	n.links[l.ID] = l
	n.linkByPair[pair] = l
	n.incident[from] = append(n.incident[from], l)
	n.incident[to] = append(n.incident[to], l)
	return l
}

// Node returns the node with the given ID, or nil.
func (n *Network) Node(id int) *Node { return n.nodes[id] }

// Link returns the link with the given ID, or nil.
func (n *Network) Link(id int) *Link { return n.links[id] }

// LinkBetween returns the directed link from one node to another, or nil.
func (n *Network) LinkBetween(from, to int) *Link {
	return n.linkByPair[[2]int{from, to}]
}

// IncidentLinks returns all links touching the node, sorted by link ID.
func (n *Network) IncidentLinks(nodeID int) []*Link {
	out := make([]*Link, len(n.incident[nodeID]))
	copy(out, n.incident[nodeID])
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LinkLive reports whether a link is usable: neither it nor either of its
// endpoint nodes is failed.
func (n *Network) LinkLive(l *Link) bool {
	if l == nil || l.Failed {
		return false
	}
	return !n.nodes[l.From].Failed && !n.nodes[l.To].Failed
}

// PathLive reports whether every link of the path is usable.
func (n *Network) PathLive(p Path) bool {
	if len(p) == 0 {
		return false
	}
	for _, l := range p {
		if !n.LinkLive(l) {
			return false
		}
	}
	return true
}

// FailLink marks the directed link failed and returns the flows that were
// routed over it. The caller evicts them; a failed link carries zero flows.
func (n *Network) FailLink(l *Link) []*Flow {
	evicted := l.Flows()
	l.Failed = true
	return evicted
}

// RecoverLink clears the directed link's failed state.
func (n *Network) RecoverLink(l *Link) {
	l.Failed = false
}

// FailNode marks the node failed. Its incident links become unusable
// implicitly (LinkLive), so the caller must evict flows crossing them.
func (n *Network) FailNode(id int) []*Flow {
	node := n.nodes[id]
	node.Failed = true
	seen := make(map[int]bool)
	var evicted []*Flow
	for _, l := range n.IncidentLinks(id) {
		for _, f := range l.Flows() {
			if !seen[f.ID] {
				seen[f.ID] = true
				evicted = append(evicted, f)
			}
		}
	}
	sort.Slice(evicted, func(i, j int) bool { return evicted[i].ID < evicted[j].ID })
	return evicted
}

// RecoverNode clears the node's failed state. Links failed by an explicit
// link failure stay down until their own recovery.
func (n *Network) RecoverNode(id int) {
	n.nodes[id].Failed = false
}

// FailedLinks returns the explicitly failed links, sorted by ID.
func (n *Network) FailedLinks() []*Link {
	var out []*Link
	for _, l := range n.links {
		if l.Failed {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FailedNodes returns the failed node IDs in ascending order.
func (n *Network) FailedNodes() []int {
	var out []int
	for _, node := range n.nodes {
		if node.Failed {
			out = append(out, node.ID)
		}
	}
	sort.Ints(out)
	return out
}

// linksWithFlows returns every live link carrying at least one flow, sorted
// by link ID. This is the aftermath engine's working set.
func (n *Network) linksWithFlows() []*Link {
	var out []*Link
	for _, l := range n.links {
		if len(l.flows) > 0 && n.LinkLive(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
