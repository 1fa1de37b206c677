package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/qdeck/bdsp/bdsp"
	"github.com/qdeck/bdsp/sim"
	"github.com/qdeck/bdsp/tui"
	"github.com/qdeck/bdsp/verify"
)

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Run one trial per strategy on a random target",
		Long: fmt.Sprintf(`Run one trial per strategy on a random target.

Strategies whose circuit is wider than %d qubits cannot be simulated and are
reported as skipped; bottom_up reaches that width at 5 data qubits.`, sim.DefaultMaxQubits),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := a.cfg.Qubits
			vector := verify.RandomState(a.targetRand(), n)
			v := a.verifier(a.backend(0))

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STRATEGY\tSPLIT\tQUBITS\tDEPTH\tCNOTS\tMAX DEV\tRESULT")
			failed := 0
			for _, strategy := range verify.Strategies {
				split, err := verify.StrategySplit(strategy, n)
				if err != nil {
					return err
				}
				s := bdsp.DefaultSplit(n)
				if split != nil {
					s = *split
				}
				res, err := v.Trial(cmd.Context(), vector, split)
				if errors.Is(err, sim.ErrTooManyQubits) {
					a.logger.Warn("strategy skipped", "strategy", strategy, "err", err)
					fmt.Fprintf(tw, "%s\t%d\t%d\t-\t-\t-\tskipped\n", strategy, s, bdsp.QubitCount(n, s))
					continue
				}
				if err != nil {
					return fmt.Errorf("%s: %w", strategy, err)
				}
				result := "pass"
				if !res.Passed {
					result = "FAIL"
					failed++
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.4f\t%s\n",
					strategy, s, res.Qubits, res.Stats.Depth, res.Stats.CNOTs, res.MaxDeviation, result)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				a.logger.Error("trials failed", "failed", failed, "total", len(verify.Strategies))
				return errTrialsFailed
			}
			return nil
		},
	}
}

func (a *app) qasmCmd() *cobra.Command {
	var split int
	cmd := &cobra.Command{
		Use:   "qasm",
		Short: "Print the OpenQASM of the circuit preparing a random target",
		RunE: func(cmd *cobra.Command, args []string) error {
			vector := verify.RandomState(a.targetRand(), a.cfg.Qubits)
			var opts bdsp.Options
			if cmd.Flags().Changed("split") {
				opts = bdsp.WithSplit(split)
			}
			c, err := bdsp.Initializer{Logger: a.logger}.Prepare(vector, opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), c.ToQASM())
			return err
		},
	}
	cmd.Flags().IntVarP(&split, "split", "s", 0, "split level in [1, qubits], automatic when unset")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show width, depth and CNOT count for every split",
		RunE: func(cmd *cobra.Command, args []string) error {
			n := a.cfg.Qubits
			vector := verify.RandomState(a.targetRand(), n)
			prep := bdsp.Initializer{Logger: a.logger}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SPLIT\tQUBITS\tDEPTH\tGATES\tCNOTS\t")
			for s := 1; s <= n; s++ {
				c, err := prep.Prepare(vector, bdsp.WithSplit(s))
				if err != nil {
					return err
				}
				st := c.Stats()
				mark := ""
				if s == bdsp.DefaultSplit(n) {
					mark = "default"
				}
				fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%s\n", s, st.Qubits, st.Depth, st.Gates, st.CNOTs, mark)
			}
			return tw.Flush()
		},
	}
}

// benchJob is one trial of the bench run.
type benchJob struct {
	strategy verify.Strategy
	vector   []complex128
}

func (a *app) benchCmd() *cobra.Command {
	var trials, workers int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run many trials per strategy concurrently and report pass rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("trials") {
				a.cfg.Trials = trials
			}
			if cmd.Flags().Changed("workers") {
				a.cfg.Workers = workers
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			metrics := verify.NewMetrics(reg)
			passed, err := a.bench(cmd.Context(), metrics)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STRATEGY\tPASSED\tRATE")
			for _, strategy := range verify.Strategies {
				fmt.Fprintf(tw, "%s\t%d/%d\t%.1f%%\n", strategy, passed[strategy], a.cfg.Trials,
					100*float64(passed[strategy])/float64(a.cfg.Trials))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			families, err := reg.Gather()
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			for _, mf := range families {
				if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&trials, "trials", "t", 0, "trials per strategy")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent workers")
	return cmd
}

// bench runs cfg.Trials trials per strategy on cfg.Workers workers, each
// sampling on its own backend.
func (a *app) bench(ctx context.Context, metrics *verify.Metrics) (map[verify.Strategy]int, error) {
	rng := a.targetRand()
	jobs := make([]benchJob, 0, a.cfg.Trials*len(verify.Strategies))
	for range a.cfg.Trials {
		vector := verify.RandomState(rng, a.cfg.Qubits)
		for _, strategy := range verify.Strategies {
			jobs = append(jobs, benchJob{strategy: strategy, vector: vector})
		}
	}

	var (
		mu     sync.Mutex
		passed = make(map[verify.Strategy]int)
	)
	queue := make(chan benchJob)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		for _, job := range jobs {
			select {
			case queue <- job:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := range a.cfg.Workers {
		v := a.verifier(a.backend(uint64(w)), verify.WithMetrics(metrics))
		g.Go(func() error {
			for job := range queue {
				split, err := verify.StrategySplit(job.strategy, a.cfg.Qubits)
				if err != nil {
					return err
				}
				ok, err := v.RunTrial(ctx, job.vector, split)
				if err != nil {
					return fmt.Errorf("worker %d: %s: %w", w, job.strategy, err)
				}
				if ok {
					mu.Lock()
					passed[job.strategy]++
					mu.Unlock()
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.logger.Info("bench finished",
		"trials", len(jobs),
		"workers", a.cfg.Workers,
		"strategies", len(verify.Strategies),
	)
	return passed, nil
}

func (a *app) viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Open the interactive trial viewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := a.verifier(a.backend(0))
			m := tui.New(v, a.targetRand(), a.cfg.Qubits)
			_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}
