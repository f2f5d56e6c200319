// Package routing implements the path-assignment strategies: ECMP-style
// distributed routing and centralized routing driven by an external solver
// over a JSON request/response bridge.
package routing

import (
	"fmt"

	"github.com/flowsim/flowsim/sim"
	"github.com/flowsim/flowsim/sim/topology"
)

// validateEndpoints rejects connections whose endpoints are not designated
// endpoints in the topology, before any flow is created.
func validateEndpoints(topo *topology.Topology, conn *sim.Connection) error {
	if !topo.ValidEndpoint(conn.Src) || !topo.ValidEndpoint(conn.Dst) {
		return &sim.InvalidConnectionError{ConnID: conn.ID, Src: conn.Src, Dst: conn.Dst}
	}
	return nil
}

// livePathThroughCore builds the path for a commodity through the given
// core and verifies it is fully usable.
func livePathThroughCore(topo *topology.Topology, src, dst, core int) (sim.Path, error) {
	path, err := topo.Path(src, dst, core)
	if err != nil {
		return nil, err
	}
	if !topo.LivePath(path) {
		return nil, fmt.Errorf("path %s crosses failed equipment: %w", path, sim.ErrUnroutable)
	}
	return path, nil
}
