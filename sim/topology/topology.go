// Package topology builds leaf-spine fabrics for the simulator: servers
// attached to top-of-rack switches, every ToR wired to every core switch in
// both directions. It owns endpoint validity and candidate-path enumeration
// for the routing strategies.
package topology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flowsim/flowsim/sim"
)

// Config describes a leaf-spine fabric. Node IDs are assigned in blocks:
// ToRs first, then cores, then servers, each block in ascending order.
type Config struct {
	NumTors       int     `yaml:"num_tors"`
	NumCores      int     `yaml:"num_cores"`
	ServersPerTor int     `yaml:"servers_per_tor"`
	LinkCapacity  float64 `yaml:"link_capacity"`

	// ServerLinkCapacity overrides LinkCapacity on server<->ToR links when
	// set (> 0), modeling host oversubscription.
	ServerLinkCapacity float64 `yaml:"server_link_capacity,omitempty"`
}

// LoadConfig reads a YAML topology description from disk.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse topology config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for buildability.
func (c *Config) Validate() error {
	if c.NumTors <= 0 {
		return fmt.Errorf("num_tors must be > 0, got %d", c.NumTors)
	}
	if c.NumCores <= 0 {
		return fmt.Errorf("num_cores must be > 0, got %d", c.NumCores)
	}
	if c.ServersPerTor <= 0 {
		return fmt.Errorf("servers_per_tor must be > 0, got %d", c.ServersPerTor)
	}
	if c.LinkCapacity <= 0 {
		return fmt.Errorf("link_capacity must be > 0, got %f", c.LinkCapacity)
	}
	return nil
}

// Topology is the built fabric: the network model plus the role metadata
// the routing strategies need.
type Topology struct {
	cfg Config
	net *sim.Network

	torIDs    []int
	coreIDs   []int
	serverIDs []int
	torOf     map[int]int // server ID -> its ToR ID
}

// Build constructs the network and metadata from a validated config.
func Build(cfg *Config) (*Topology, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Topology{
		cfg:   *cfg,
		net:   sim.NewNetwork(),
		torOf: make(map[int]int),
	}

	id := 0
	for i := 0; i < cfg.NumTors; i++ {
		t.net.AddNode(id, sim.NodeTor)
		t.torIDs = append(t.torIDs, id)
		id++
	}
	for i := 0; i < cfg.NumCores; i++ {
		t.net.AddNode(id, sim.NodeCore)
		t.coreIDs = append(t.coreIDs, id)
		id++
	}

	serverCap := cfg.LinkCapacity
	if cfg.ServerLinkCapacity > 0 {
		serverCap = cfg.ServerLinkCapacity
	}
	for _, tor := range t.torIDs {
		for i := 0; i < cfg.ServersPerTor; i++ {
			t.net.AddNode(id, sim.NodeServer)
			t.serverIDs = append(t.serverIDs, id)
			t.torOf[id] = tor
			t.net.AddLink(id, tor, serverCap)
			t.net.AddLink(tor, id, serverCap)
			id++
		}
	}

	for _, tor := range t.torIDs {
		for _, core := range t.coreIDs {
			t.net.AddLink(tor, core, cfg.LinkCapacity)
			t.net.AddLink(core, tor, cfg.LinkCapacity)
		}
	}

	return t, nil
}

// Network returns the built network model.
func (t *Topology) Network() *sim.Network { return t.net }

// NumTors returns the number of top-of-rack switches.
func (t *Topology) NumTors() int { return t.cfg.NumTors }

// TorIDs returns the ToR node IDs in ascending order.
func (t *Topology) TorIDs() []int { return append([]int(nil), t.torIDs...) }

// CoreIDs returns the core node IDs in ascending order.
func (t *Topology) CoreIDs() []int { return append([]int(nil), t.coreIDs...) }

// ServerIDs returns the server node IDs in ascending order.
func (t *Topology) ServerIDs() []int { return append([]int(nil), t.serverIDs...) }

// TorOf returns the ToR a server hangs off.
func (t *Topology) TorOf(serverID int) int { return t.torOf[serverID] }

// ValidEndpoint reports whether the node may terminate a connection. Only
// servers are valid endpoints; ToR and core switches are not.
func (t *Topology) ValidEndpoint(nodeID int) bool {
	n := t.net.Node(nodeID)
	return n != nil && n.Kind == sim.NodeServer
}

// SameTor reports whether two servers share a ToR.
func (t *Topology) SameTor(src, dst int) bool {
	return t.torOf[src] == t.torOf[dst]
}

// LiveCoreIDs returns the non-failed core IDs in ascending order. This is
// the candidate-path enumeration order the centralized response indices are
// interpreted against (index modulo the list length).
func (t *Topology) LiveCoreIDs() []int {
	var out []int
	for _, id := range t.coreIDs {
		if !t.net.Node(id).Failed {
			out = append(out, id)
		}
	}
	return out
}

// CandidateCores returns, in ascending order, the cores through which a
// fully live path from src to dst exists. Empty for a same-ToR pair (which
// has a single core-less path) and when failures block every option.
func (t *Topology) CandidateCores(src, dst int) []int {
	if t.SameTor(src, dst) {
		return nil
	}
	if !t.edgeLive(src, t.torOf[src]) || !t.edgeLive(t.torOf[dst], dst) {
		return nil
	}
	var out []int
	for _, core := range t.LiveCoreIDs() {
		if t.edgeLive(t.torOf[src], core) && t.edgeLive(core, t.torOf[dst]) {
			out = append(out, core)
		}
	}
	return out
}

func (t *Topology) edgeLive(from, to int) bool {
	return t.net.LinkLive(t.net.LinkBetween(from, to))
}

// Path constructs the acyclic path src -> srcToR -> core -> dstToR -> dst.
// For a same-ToR pair the core is ignored and the path collapses to
// src -> tor -> dst.
func (t *Topology) Path(src, dst, core int) (sim.Path, error) {
	if src == dst {
		return nil, fmt.Errorf("path endpoints are equal: %d", src)
	}
	srcTor, ok := t.torOf[src]
	if !ok {
		return nil, fmt.Errorf("node %d is not a server", src)
	}
	dstTor, ok := t.torOf[dst]
	if !ok {
		return nil, fmt.Errorf("node %d is not a server", dst)
	}

	var hops [][2]int
	if srcTor == dstTor {
		hops = [][2]int{{src, srcTor}, {srcTor, dst}}
	} else {
		hops = [][2]int{{src, srcTor}, {srcTor, core}, {core, dstTor}, {dstTor, dst}}
	}
	links := make([]*sim.Link, 0, len(hops))
	for _, h := range hops {
		l := t.net.LinkBetween(h[0], h[1])
		if l == nil {
			return nil, fmt.Errorf("no link %d -> %d in topology", h[0], h[1])
		}
		links = append(links, l)
	}
	return sim.NewPath(links...)
}

// SameTorPath returns the two-hop path between servers on one ToR, or an
// error if they do not share one.
func (t *Topology) SameTorPath(src, dst int) (sim.Path, error) {
	if !t.SameTor(src, dst) {
		return nil, fmt.Errorf("servers %d and %d are not on the same tor", src, dst)
	}
	return t.Path(src, dst, -1)
}

// LivePath reports whether every link of the path is currently usable.
func (t *Topology) LivePath(p sim.Path) bool {
	return t.net.PathLive(p)
}
