package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flowsim/flowsim/sim"
	"github.com/flowsim/flowsim/sim/routing"
	"github.com/flowsim/flowsim/sim/topology"
	"github.com/flowsim/flowsim/sim/trace"
	"github.com/flowsim/flowsim/sim/workload"
)

var (
	// CLI flags for the simulation run
	seed          int64  // Master seed partitioned across subsystems
	logLevel      string // Log verbosity level
	topologyPath  string // Leaf-spine topology YAML
	schedulePath  string // Job schedule YAML (mutually exclusive with --jobs)
	failuresPath  string // Failure plan YAML (optional)
	outDir        string // Output directory for CSV records
	routingName   string // Routing strategy (ecmp or centralized)
	roundInterval int64  // Centralized decision round interval (in ticks)
	solverDir     string // Directory for the solver file exchange
	solverTimeout time.Duration

	// CLI flags for the ring allreduce generator
	numJobs        int
	ringSize       int
	dataSize       float64
	startSpread    int64
	arrivalProcess string  // Job inter-arrival process (overrides --start-spread)
	arrivalRate    float64 // Jobs per tick for the arrival process
	arrivalCV      float64 // Coefficient of variation for gamma/weibull arrivals
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "flowsim",
	Short: "Discrete-event flow-level network bandwidth simulator",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a flow simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if topologyPath == "" {
			logrus.Fatal("--topology is required")
		}
		if schedulePath == "" && numJobs == 0 {
			logrus.Fatal("either --schedule or --jobs is required")
		}
		if schedulePath != "" && numJobs > 0 {
			logrus.Fatal("--schedule and --jobs are mutually exclusive")
		}

		topoCfg, err := topology.LoadConfig(topologyPath)
		if err != nil {
			logrus.Fatalf("Loading topology: %v", err)
		}
		topo, err := topology.Build(topoCfg)
		if err != nil {
			logrus.Fatalf("Building topology: %v", err)
		}

		key := sim.NewSimulationKey(seed)
		strategy, err := buildStrategy(topo)
		if err != nil {
			logrus.Fatalf("Configuring routing: %v", err)
		}

		recorder := trace.NewRecorder()
		s, err := sim.NewSimulator(topo.Network(), strategy, recorder.Sinks(), key)
		if err != nil {
			logrus.Fatalf("Initializing simulator: %v", err)
		}

		sched, err := buildSchedule(s, topo)
		if err != nil {
			logrus.Fatalf("Loading schedule: %v", err)
		}
		if err := sched.Install(s); err != nil {
			logrus.Fatalf("Installing schedule: %v", err)
		}

		if failuresPath != "" {
			plan, err := sim.LoadFailurePlan(failuresPath)
			if err != nil {
				logrus.Fatalf("Loading failure plan: %v", err)
			}
			if err := plan.Install(s); err != nil {
				logrus.Fatalf("Installing failure plan: %v", err)
			}
		}

		logrus.Infof("Starting simulation: %d ToRs, %d cores, %d servers, %d connections, routing=%s",
			topoCfg.NumTors, topoCfg.NumCores, len(topo.ServerIDs()), sched.NumConnections(), routingName)

		startTime := time.Now()
		s.Run()
		recorder.Finalize(s)

		if err := recorder.WriteCSV(outDir); err != nil {
			logrus.Fatalf("Writing output: %v", err)
		}

		summary := trace.Summarize(recorder)
		logrus.Infof("Simulation complete at t=%d (%v wall): %d/%d connections finished, %d/%d jobs finished",
			s.Clock, time.Since(startTime).Round(time.Millisecond),
			summary.CompletedConnections, summary.Connections,
			summary.CompletedJobs, summary.Jobs)
		logrus.Infof("Connection completion time: mean=%.1f p50=%.1f p99=%.1f; mean link utilization %.3f",
			summary.MeanDuration, summary.P50Duration, summary.P99Duration, summary.MeanLinkUtil)
		if summary.AssignmentRounds > 0 {
			logrus.Infof("Decision rounds: %d (%d failed)", summary.AssignmentRounds, summary.FailedRounds)
		}
	},
}

// buildStrategy constructs the routing strategy selected by --routing.
func buildStrategy(topo *topology.Topology) (sim.RoutingStrategy, error) {
	switch routingName {
	case "ecmp":
		return routing.NewECMP(topo), nil
	case "centralized":
		client := routing.NewFileSolverClient(solverDir, solverTimeout)
		return routing.NewCentralized(topo, client, roundInterval), nil
	default:
		return nil, fmt.Errorf("unknown routing strategy %q (want ecmp or centralized)", routingName)
	}
}

// buildSchedule loads the schedule file, or generates ring allreduce jobs
// when --jobs is given.
func buildSchedule(s *sim.Simulator, topo *topology.Topology) (*workload.Schedule, error) {
	if schedulePath != "" {
		sched, err := workload.Load(schedulePath)
		if err != nil {
			return nil, err
		}
		return sched, nil
	}
	spec := &workload.RingSpec{
		NumJobs:     numJobs,
		RingSize:    ringSize,
		DataSize:    dataSize,
		StartSpread: startSpread,
	}
	if arrivalProcess != "" {
		cv := arrivalCV
		spec.Arrival = &workload.ArrivalSpec{Process: arrivalProcess, Rate: arrivalRate, CV: &cv}
	}
	if err := spec.Validate(len(topo.ServerIDs())); err != nil {
		return nil, err
	}
	return workload.GenerateRings(spec, topo.ServerIDs(), s.RNG().ForSubsystem(sim.SubsystemWorkload))
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for the run's random subsystems")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&topologyPath, "topology", "", "Leaf-spine topology YAML file")
	runCmd.Flags().StringVar(&schedulePath, "schedule", "", "Job schedule YAML file")
	runCmd.Flags().StringVar(&failuresPath, "failures", "", "Failure plan YAML file")
	runCmd.Flags().StringVar(&outDir, "out", "out", "Directory for CSV output records")

	// Routing configs
	runCmd.Flags().StringVar(&routingName, "routing", "ecmp", "Routing strategy (ecmp, centralized)")
	runCmd.Flags().Int64Var(&roundInterval, "routing-interval", 1000, "Centralized decision round interval (ticks)")
	runCmd.Flags().StringVar(&solverDir, "solver-dir", "solver", "Directory for the external solver file exchange")
	runCmd.Flags().DurationVar(&solverTimeout, "solver-timeout", 30*time.Second, "Wall-clock timeout for one solver exchange")

	// Ring allreduce generator configs
	runCmd.Flags().IntVar(&numJobs, "jobs", 0, "Generate this many ring allreduce jobs instead of loading --schedule")
	runCmd.Flags().IntVar(&ringSize, "ring-size", 4, "Servers per generated ring")
	runCmd.Flags().Float64Var(&dataSize, "data-size", 1e6, "Bytes each ring member sends to its successor")
	runCmd.Flags().Int64Var(&startSpread, "start-spread", 0, "Generated job start times are uniform in [0, spread]")
	runCmd.Flags().StringVar(&arrivalProcess, "arrival", "", "Job inter-arrival process (constant, poisson, gamma, weibull); overrides --start-spread")
	runCmd.Flags().Float64Var(&arrivalRate, "arrival-rate", 0.001, "Jobs per tick for the arrival process")
	runCmd.Flags().Float64Var(&arrivalCV, "arrival-cv", 1.0, "Coefficient of variation for gamma/weibull arrivals")

	rootCmd.AddCommand(runCmd)
}
