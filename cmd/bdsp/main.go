package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/qdeck/bdsp/bdsp"
	"github.com/qdeck/bdsp/sim"
	"github.com/qdeck/bdsp/verify"
)

// errTrialsFailed makes the process exit with status 1 without a usage dump.
var errTrialsFailed = errors.New("verification failed")

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	seed       uint64
	qubits     int

	cfg    *verify.Config
	logger *log.Logger
}

func main() {
	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		if !errors.Is(err, errTrialsFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "bdsp",
		Short:         "Verify bidirectional state preparation circuits by sampling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd, logOut)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.Uint64Var(&a.seed, "seed", 0, "seed for targets and sampling")
	flags.IntVarP(&a.qubits, "qubits", "n", 0, "data qubits of the target state")

	root.AddCommand(
		a.verifyCmd(),
		a.qasmCmd(),
		a.statsCmd(),
		a.benchCmd(),
		a.viewCmd(),
	)
	return root
}

// load reads the config file, then lets explicitly set flags override it.
func (a *app) load(cmd *cobra.Command, logOut io.Writer) error {
	cfg := verify.DefaultConfig()
	if a.configPath != "" {
		loaded, err := verify.LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("seed") {
		cfg.Seed = &a.seed
	}
	if flags.Changed("qubits") {
		cfg.Qubits = a.qubits
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	a.logger = log.NewWithOptions(logOut, log.Options{
		Level:           level,
		Prefix:          "bdsp",
		ReportTimestamp: true,
	})
	a.cfg = cfg
	return nil
}

// targetRand returns the generator for target vectors.
func (a *app) targetRand() *rand.Rand {
	if a.cfg.Seed != nil {
		return rand.New(rand.NewPCG(*a.cfg.Seed, 0))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// backend returns a sampling backend. Under a seed each stream gets its own
// PCG sequence; stream 0 of the seed belongs to targetRand.
func (a *app) backend(stream uint64) *sim.StatevectorBackend {
	opts := []sim.Option{sim.WithLogger(a.logger)}
	if a.cfg.Seed != nil {
		opts = append(opts, sim.WithRand(rand.New(rand.NewPCG(*a.cfg.Seed, 1+stream))))
	}
	return sim.NewStatevectorBackend(opts...)
}

func (a *app) verifier(backend sim.Backend, opts ...verify.Option) *verify.Verifier {
	opts = append(a.cfg.VerifierOptions(), append(opts, verify.WithLogger(a.logger))...)
	return verify.New(bdsp.Initializer{Logger: a.logger}, backend, opts...)
}
