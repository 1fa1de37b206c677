// Package verify checks that a state preparation circuit reproduces the
// measurement distribution of its target vector. A trial synthesizes the
// circuit, samples it on a backend and compares the empirical frequencies with
// |v_i|^2 under a relative and an absolute tolerance.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"math/cmplx"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/qdeck/bdsp/bdsp"
	"github.com/qdeck/bdsp/circuit"
	"github.com/qdeck/bdsp/sim"
)

// Defaults for the closeness check.
const (
	DefaultShots = 8192
	DefaultRTol  = 0.1
	DefaultATol  = 0.005
)

var (
	// ErrZeroVector is returned by Normalize for an all-zero vector.
	ErrZeroVector = errors.New("cannot normalize a zero vector")
	// ErrShortOutput is returned when a prepared circuit exposes fewer data
	// qubits than the target vector needs.
	ErrShortOutput = errors.New("circuit has too few data qubits")
)

// Verifier runs preparation trials against a backend.
type Verifier struct {
	Preparer bdsp.Preparer
	Backend  sim.Backend
	Shots    int
	RTol     float64
	ATol     float64
	Logger   *log.Logger
	Metrics  *Metrics
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithShots sets the number of samples per trial.
func WithShots(shots int) Option {
	return func(v *Verifier) { v.Shots = shots }
}

// WithTolerance sets the relative and absolute tolerance of the comparison.
func WithTolerance(rtol, atol float64) Option {
	return func(v *Verifier) {
		v.RTol = rtol
		v.ATol = atol
	}
}

// WithLogger sets the trial logger.
func WithLogger(logger *log.Logger) Option {
	return func(v *Verifier) { v.Logger = logger }
}

// WithMetrics records every trial outcome on m.
func WithMetrics(m *Metrics) Option {
	return func(v *Verifier) { v.Metrics = m }
}

// New returns a Verifier with the default shot count and tolerances.
func New(prep bdsp.Preparer, backend sim.Backend, opts ...Option) *Verifier {
	v := &Verifier{
		Preparer: prep,
		Backend:  backend,
		Shots:    DefaultShots,
		RTol:     DefaultRTol,
		ATol:     DefaultATol,
		Logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Result is the full record of one trial.
type Result struct {
	ID           uuid.UUID
	Strategy     Strategy
	Split        *int
	Qubits       int
	Empirical    []float64
	Theoretical  []float64
	MaxDeviation float64
	WorstIndex   int
	Passed       bool
	Stats        circuit.Stats
	Duration     time.Duration

	// Circuit is the synthesized circuit before measurement.
	Circuit *circuit.Circuit
}

// RunTrial prepares vector with the given split (nil for automatic), samples
// its data qubits and reports whether the frequencies match |v_i|^2.
// Errors from the preparer or backend are returned unchanged.
func (v *Verifier) RunTrial(ctx context.Context, vector []complex128, split *int) (bool, error) {
	res, err := v.Trial(ctx, vector, split)
	if err != nil {
		return false, err
	}
	return res.Passed, nil
}

// Trial is RunTrial with the intermediate data kept.
func (v *Verifier) Trial(ctx context.Context, vector []complex128, split *int) (*Result, error) {
	start := time.Now()
	res := &Result{
		ID:       uuid.New(),
		Strategy: StrategyOf(split, len(vector)),
		Split:    split,
	}

	c, err := v.Preparer.Prepare(vector, bdsp.Options{Split: split})
	if err != nil {
		return nil, err
	}
	n := bits.Len(uint(len(vector))) - 1
	data := c.DataQubits()
	if len(data) < n {
		return nil, fmt.Errorf("%w: %d < %d", ErrShortOutput, len(data), n)
	}
	res.Circuit = c
	res.Qubits = c.NumQubits
	res.Stats = c.Stats()

	res.Empirical, err = sim.Measurement(ctx, v.Backend, c, data[:n], v.Shots)
	if err != nil {
		return nil, err
	}
	res.Theoretical = Theoretical(vector)
	res.MaxDeviation, res.WorstIndex = maxDeviation(res.Empirical, res.Theoretical)
	res.Passed = AllClose(res.Empirical, res.Theoretical, v.RTol, v.ATol)
	res.Duration = time.Since(start)

	v.record(res)
	return res, nil
}

func (v *Verifier) record(res *Result) {
	if v.Metrics != nil {
		v.Metrics.Observe(res)
	}
	if v.Logger == nil {
		return
	}
	fields := []any{
		"id", res.ID,
		"strategy", res.Strategy,
		"qubits", res.Qubits,
		"depth", res.Stats.Depth,
		"max_deviation", res.MaxDeviation,
		"duration", res.Duration,
	}
	if res.Passed {
		v.Logger.Info("trial passed", fields...)
	} else {
		v.Logger.Warn("trial failed", append(fields, "worst_index", res.WorstIndex)...)
	}
}

// RunMajority runs trials independent trials and passes when a strict
// majority of them pass. The first error aborts the run.
func (v *Verifier) RunMajority(ctx context.Context, vector []complex128, split *int, trials int) (bool, error) {
	if trials <= 0 {
		return false, fmt.Errorf("trials must be positive, got %d", trials)
	}
	passed := 0
	for i := range trials {
		ok, err := v.RunTrial(ctx, vector, split)
		if err != nil {
			return false, fmt.Errorf("trial %d: %w", i, err)
		}
		if ok {
			passed++
		}
		// stop once the outcome cannot change
		if passed*2 > trials || (i+1-passed)*2 >= trials {
			break
		}
	}
	return passed*2 > trials, nil
}

// Theoretical returns |v_i|^2 for every amplitude.
func Theoretical(vector []complex128) []float64 {
	probs := make([]float64, len(vector))
	for i, amp := range vector {
		probs[i] = real(amp * cmplx.Conj(amp))
	}
	return probs
}

// AllClose reports whether |a_i - b_i| <= atol + rtol*|b_i| for every i.
// Slices of different length are never close.
func AllClose(a, b []float64, rtol, atol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > atol+rtol*math.Abs(b[i]) {
			return false
		}
	}
	return true
}

func maxDeviation(a, b []float64) (float64, int) {
	worst, idx := 0.0, -1
	for i := range min(len(a), len(b)) {
		if d := math.Abs(a[i] - b[i]); d > worst || idx < 0 {
			worst, idx = d, i
		}
	}
	return worst, idx
}

// Normalize returns vector scaled to unit Euclidean norm.
func Normalize(vector []complex128) ([]complex128, error) {
	norm := 0.0
	for _, amp := range vector {
		norm += real(amp)*real(amp) + imag(amp)*imag(amp)
	}
	if norm == 0 {
		return nil, ErrZeroVector
	}
	scale := complex(1/math.Sqrt(norm), 0)
	out := make([]complex128, len(vector))
	for i, amp := range vector {
		out[i] = amp * scale
	}
	return out, nil
}

// RandomState draws a normalized 2^n vector whose real and imaginary parts
// start out uniform in [0, 1).
func RandomState(rng *rand.Rand, n int) []complex128 {
	for {
		v := make([]complex128, 1<<n)
		for i := range v {
			v[i] = complex(rng.Float64(), rng.Float64())
		}
		if out, err := Normalize(v); err == nil {
			return out
		}
	}
}
