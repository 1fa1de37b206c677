package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/qdeck/bdsp/circuit"
)

var (
	// ErrNoMeasurements is returned when a circuit writes no classical bits.
	ErrNoMeasurements = errors.New("circuit has no measurements")
	// ErrTooManyQubits is returned when a circuit exceeds the backend's qubit limit.
	ErrTooManyQubits = errors.New("too many qubits for statevector simulation")
	// ErrInvalidShots is returned for a non-positive shot count.
	ErrInvalidShots = errors.New("shots must be positive")
)

// Counts maps a classical register bitstring, c[NumCbits-1] leftmost, to the
// number of shots that produced it.
type Counts map[string]int

// Backend executes a measured circuit for a number of shots.
type Backend interface {
	Execute(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error)
}

// DefaultMaxQubits bounds the statevector to 2^24 amplitudes.
const DefaultMaxQubits = 24

// StatevectorBackend simulates a circuit once and samples every shot from the
// final state. It is safe for concurrent use.
type StatevectorBackend struct {
	mu        sync.Mutex
	rng       *rand.Rand
	maxQubits int
	logger    *log.Logger
}

// Option configures a StatevectorBackend.
type Option func(*StatevectorBackend)

// WithSeed makes sampling reproducible.
func WithSeed(seed uint64) Option {
	return func(b *StatevectorBackend) {
		b.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithRand sets the random source used for sampling.
func WithRand(rng *rand.Rand) Option {
	return func(b *StatevectorBackend) { b.rng = rng }
}

// WithMaxQubits overrides DefaultMaxQubits.
func WithMaxQubits(n int) Option {
	return func(b *StatevectorBackend) { b.maxQubits = n }
}

// WithLogger sets the logger used for execution traces.
func WithLogger(logger *log.Logger) Option {
	return func(b *StatevectorBackend) { b.logger = logger }
}

// NewStatevectorBackend returns a backend seeded from fresh entropy unless
// WithSeed or WithRand is given.
func NewStatevectorBackend(opts ...Option) *StatevectorBackend {
	b := &StatevectorBackend{
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		maxQubits: DefaultMaxQubits,
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Execute runs the circuit and samples shots outcomes of its classical register.
func (b *StatevectorBackend) Execute(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShots, shots)
	}
	if c.NumQubits > b.maxQubits {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyQubits, c.NumQubits, b.maxQubits)
	}

	if !c.HasMeasurements() {
		return nil, ErrNoMeasurements
	}

	// qubit feeding each classical bit, in register order
	measured := make([]int, c.NumCbits)
	for i := range measured {
		measured[i] = -1
	}
	for _, g := range c.Gates {
		if g.Type != "MEASURE" {
			continue
		}
		if g.Cbit < 0 || g.Cbit >= c.NumCbits {
			return nil, fmt.Errorf("%s: classical bit out of range [0,%d)", g, c.NumCbits)
		}
		measured[g.Cbit] = g.Target
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state, err := Run(c)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cdf := make([]float64, len(state.Amplitudes))
	total := 0.0
	for i, p := range state.Probabilities() {
		total += p
		cdf[i] = total
	}

	b.mu.Lock()
	samples := make([]int, shots)
	for i := range samples {
		r := b.rng.Float64() * total
		idx := sort.Search(len(cdf), func(k int) bool { return cdf[k] > r })
		samples[i] = min(idx, len(cdf)-1)
	}
	b.mu.Unlock()

	counts := make(Counts)
	for _, basis := range samples {
		counts[bitstring(basis, measured)]++
	}

	b.logger.Debug("executed circuit",
		"qubits", c.NumQubits,
		"gates", len(c.Gates),
		"shots", shots,
		"outcomes", len(counts),
	)
	return counts, nil
}

// bitstring renders the classical register for a sampled basis state. Bits
// without a measurement read 0.
func bitstring(basis int, measured []int) string {
	var sb strings.Builder
	for cbit := len(measured) - 1; cbit >= 0; cbit-- {
		q := measured[cbit]
		if q >= 0 && (basis>>q)&1 == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
