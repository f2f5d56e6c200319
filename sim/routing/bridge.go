package routing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/flowsim/flowsim/sim"
)

// SolveRequest is the decision-round request handed to the external solver.
type SolveRequest struct {
	// Commodities maps connection-ID strings to (source, destination)
	// node-ID pairs.
	Commodities map[string][2]int `json:"commodities"`
	// FailedLinks lists failed node-ID pairs, both directions.
	FailedLinks [][2]int `json:"failed_links"`
	// FailedCores lists failed node IDs.
	FailedCores []int `json:"failed_cores"`
	// NumTors is the topology size hint.
	NumTors int `json:"num_tors"`
}

// SolverClient is the synchronous request/response boundary to the external
// path solver. Solve blocks the (single) simulation thread until a response
// arrives or the transport's timeout elapses; the simulated clock does not
// advance during the call. The returned map is connection ID to path index,
// interpreted modulo the number of viable parallel paths.
type SolverClient interface {
	Solve(req SolveRequest) (map[int]int, error)
}

// ParseResponse decodes and validates a solver response body: a JSON object
// mapping connection-ID strings to non-negative integer path indices. Any
// malformed entry fails the whole response, so a round is applied all or
// nothing.
func ParseResponse(data []byte) (map[int]int, error) {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed solver response: %v: %w", err, sim.ErrExternalSolver)
	}
	out := make(map[int]int, len(raw))
	for key, idx := range raw {
		connID, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("malformed solver response: connection id %q: %w", key, sim.ErrExternalSolver)
		}
		if idx < 0 {
			return nil, fmt.Errorf("malformed solver response: negative path index %d for connection %s: %w",
				idx, key, sim.ErrExternalSolver)
		}
		out[connID] = idx
	}
	return out, nil
}

// FileSolverClient exchanges request/response JSON files with a solver
// process watching a shared directory: the request is written to
// solver_request.json and the client polls for solver_response.json until
// the timeout. Both files are removed after a successful exchange so each
// round sees exactly one request and one response.
type FileSolverClient struct {
	Dir     string
	Timeout time.Duration
	// Poll is the response polling period; it defaults to 10ms.
	Poll time.Duration
}

// NewFileSolverClient creates a file-exchange solver client.
func NewFileSolverClient(dir string, timeout time.Duration) *FileSolverClient {
	return &FileSolverClient{Dir: dir, Timeout: timeout}
}

func (c *FileSolverClient) requestPath() string {
	return filepath.Join(c.Dir, "solver_request.json")
}

func (c *FileSolverClient) responsePath() string {
	return filepath.Join(c.Dir, "solver_response.json")
}

// Solve implements SolverClient.
func (c *FileSolverClient) Solve(req SolveRequest) (map[int]int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode solver request: %v: %w", err, sim.ErrExternalSolver)
	}
	if err := os.WriteFile(c.requestPath(), body, 0o644); err != nil {
		return nil, fmt.Errorf("write solver request: %v: %w", err, sim.ErrExternalSolver)
	}

	poll := c.Poll
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	deadline := time.Now().Add(c.Timeout)
	for {
		data, rerr := os.ReadFile(c.responsePath())
		if rerr == nil {
			assignments, perr := ParseResponse(data)
			if perr != nil {
				return nil, perr
			}
			os.Remove(c.responsePath())
			os.Remove(c.requestPath())
			return assignments, nil
		}
		if !os.IsNotExist(rerr) {
			return nil, fmt.Errorf("read solver response: %v: %w", rerr, sim.ErrExternalSolver)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("solver response timeout after %s: %w", c.Timeout, sim.ErrExternalSolver)
		}
		time.Sleep(poll)
	}
}
