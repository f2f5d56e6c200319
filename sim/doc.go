// Package sim provides the discrete-event engine for bandwidth-sharing
// network flow simulation.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - simulator.go: the event loop, clock, and all model-mutation helpers
//   - event.go: the event types that drive the simulation
//   - aftermath.go: the max-min fair bandwidth reallocation pass
//
// # Architecture
//
// The sim package defines the engine and its extension interfaces;
// implementations live in sub-packages:
//   - sim/topology/: leaf-spine topology construction and path enumeration
//   - sim/routing/: routing strategies (ECMP, centralized solver-driven)
//     and the external-solver bridge
//   - sim/workload/: job/connection schedules and generators
//   - sim/trace/: CSV log sinks and run summary statistics
//
// # Execution model
//
// Execution is single-threaded cooperative: the event heap drives one
// logical thread of control, and "concurrency" between flows is purely a
// property of simulated time. All mutation of the network and entity model
// happens inside event dispatch, which makes runs reproducible for a fixed
// seed. The one blocking operation is the centralized solver exchange,
// which freezes the simulated clock while it waits; its wall-clock cost is
// reported to the assignment sink.
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - RoutingStrategy: assign paths at connection start or in decision rounds
//   - NodeSink, LinkSink, FlowSink, ConnectionSink, JobSink, AssignmentSink:
//     per-entity observers (no-op implementations are provided)
package sim
