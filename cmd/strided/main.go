// strided is the running-coach service daemon.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stride/internal/coach"
	"stride/internal/config"
	"stride/internal/logging"
	"stride/internal/perception"
	"stride/internal/server"
	"stride/internal/simulate"
	"stride/internal/store"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "strided",
	Short: "stride - LLM-backed running coach service",
	Long: `stride serves a personal running coach: it turns chat messages into
validated training-program changes, persists per-user programs, and
replays recorded activity telemetry against a virtual clock.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.NewFromConfig(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Starts the coaching API, the program store and the activity
simulation, and serves until interrupted.`,
	RunE: runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Writes the default configuration to the path given by --config so it
can be edited by hand. Refuses to overwrite an existing file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", configPath)
		return nil
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate [minutes]",
	Short: "Replay telemetry locally and print the covered activity",
	Long: `Loads the configured telemetry CSV, advances the simulation by the
given number of minutes (default 30) and prints distance, pace and
elapsed time. Useful for checking a telemetry export without running
the service.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimulate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "stride.yaml", "path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// writeDefaultConfig seeds path with the default configuration. It never
// clobbers a file the operator may have edited.
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}
	return config.DefaultConfig().Save(path)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	llm, err := perception.NewClient(ctx, perception.ClientOptions{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.GetLLMTimeout(),
	})
	if err != nil {
		return fmt.Errorf("building LLM client: %w", err)
	}

	table, err := simulate.LoadTelemetry(cfg.Simulation.TelemetryCSV)
	if err != nil {
		logger.Warn("Telemetry unavailable, activity endpoints will report no data",
			zap.String("path", cfg.Simulation.TelemetryCSV),
			zap.Error(err))
		table = &simulate.Telemetry{}
	}
	clockCfg := simulate.NewClockConfig()
	if err := clockCfg.SetSpeed(cfg.Simulation.Speed); err != nil {
		return err
	}
	sim := simulate.NewSimulator(table, simulate.NewClock(clockCfg, cfg.GetPollInterval(), logger), logger)

	srv := server.New(cfg, coach.New(st, llm, logger), st, sim, logger)
	logger.Info("Starting stride",
		zap.String("version", cfg.Version),
		zap.String("listen", cfg.Server.ListenAddr),
		zap.String("provider", cfg.LLM.Provider))
	return srv.Run(ctx)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	minutes := 30
	if len(args) == 1 {
		if _, err := fmt.Sscanf(args[0], "%d", &minutes); err != nil || minutes <= 0 {
			return fmt.Errorf("minutes must be a positive integer, got %q", args[0])
		}
	}

	table, err := simulate.LoadTelemetry(cfg.Simulation.TelemetryCSV)
	if err != nil {
		return err
	}
	sim := simulate.NewSimulator(table, simulate.NewClock(nil, time.Hour, logger), logger)
	sim.Start()
	defer sim.Stop()
	if err := sim.ForceProgress(minutes); err != nil {
		return err
	}

	distance, _ := sim.Distance()
	pace, _ := sim.Pace()
	elapsed, _ := sim.Elapsed()
	snap := sim.SnapshotData()
	covered := 0
	if snap != nil {
		covered = len(snap.Timestamps)
	}
	fmt.Printf("Telemetry:  %s (%d points)\n", cfg.Simulation.TelemetryCSV, table.Len())
	fmt.Printf("Advanced:   %d minutes (%d points covered)\n", minutes, covered)
	fmt.Printf("Distance:   %.2f km\n", distance)
	fmt.Printf("Pace:       %.2f min/km\n", pace)
	fmt.Printf("Elapsed:    %s\n", elapsed)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
