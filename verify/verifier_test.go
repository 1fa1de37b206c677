package verify

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qdeck/bdsp/bdsp"
	"github.com/qdeck/bdsp/circuit"
	"github.com/qdeck/bdsp/sim"
)

// reversedPreparer reads the prepared register in the wrong qubit order.
type reversedPreparer struct{}

func (reversedPreparer) Prepare(vector []complex128, opts bdsp.Options) (*circuit.Circuit, error) {
	c, err := bdsp.Initialize(vector, opts)
	if err != nil {
		return nil, err
	}
	slices.Reverse(c.Output)
	return c, nil
}

// fixedBackend answers every execution with the same counts.
type fixedBackend struct {
	counts sim.Counts
	err    error
}

func (b fixedBackend) Execute(context.Context, *circuit.Circuit, int) (sim.Counts, error) {
	return b.counts, b.err
}

// preparerFunc adapts a function to bdsp.Preparer.
type preparerFunc func([]complex128, bdsp.Options) (*circuit.Circuit, error)

func (f preparerFunc) Prepare(vector []complex128, opts bdsp.Options) (*circuit.Circuit, error) {
	return f(vector, opts)
}

func seededVerifier(seed uint64, opts ...Option) *Verifier {
	return New(bdsp.Initializer{}, sim.NewStatevectorBackend(sim.WithSeed(seed)), opts...)
}

func TestRunTrialStrategies(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	vector := RandomState(rng, 4)
	v := seededVerifier(42)

	for _, strategy := range Strategies {
		t.Run(string(strategy), func(t *testing.T) {
			split, err := StrategySplit(strategy, 4)
			require.NoError(t, err)

			ok, err := v.RunTrial(context.Background(), vector, split)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestTrialResult(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	vector := RandomState(rng, 3)
	v := seededVerifier(3)

	res, err := v.Trial(context.Background(), vector, nil)
	require.NoError(t, err)

	assert.Equal(t, Sublinear, res.Strategy)
	assert.Nil(t, res.Split)
	assert.Equal(t, bdsp.QubitCount(3, bdsp.DefaultSplit(3)), res.Qubits)
	assert.Len(t, res.Empirical, 8)
	assert.InDeltaSlice(t, Theoretical(vector), res.Theoretical, 0)
	assert.InDelta(t, 1, sum(res.Empirical), 1e-9)
	assert.True(t, res.Passed)
	assert.LessOrEqual(t, res.MaxDeviation, 0.05)
	assert.NotEmpty(t, res.ID.String())
	assert.Positive(t, res.Stats.Gates)
}

func TestRunTrialDetectsWrongPreparer(t *testing.T) {
	// all weight on |0001>; reading the register backwards lands on |1000>
	vector := make([]complex128, 16)
	vector[1] = 1
	split := 2

	v := New(reversedPreparer{}, sim.NewStatevectorBackend(sim.WithSeed(5)))
	ok, err := v.RunTrial(context.Background(), vector, &split)
	require.NoError(t, err)
	assert.False(t, ok)

	v = seededVerifier(5)
	ok, err = v.RunTrial(context.Background(), vector, &split)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunTrialPropagatesErrors(t *testing.T) {
	v := seededVerifier(1)

	_, err := v.RunTrial(context.Background(), []complex128{1, 0, 0}, nil)
	assert.ErrorIs(t, err, bdsp.ErrNotPowerOfTwo)

	_, err = v.RunTrial(context.Background(), []complex128{1, 1}, nil)
	assert.ErrorIs(t, err, bdsp.ErrNotNormalized)

	split := 3
	_, err = v.RunTrial(context.Background(), []complex128{1, 0, 0, 0}, &split)
	assert.ErrorIs(t, err, bdsp.ErrSplitRange)

	boom := errors.New("backend down")
	v = New(bdsp.Initializer{}, fixedBackend{err: boom})
	_, err = v.RunTrial(context.Background(), []complex128{1, 0}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRunTrialToleranceBoundary(t *testing.T) {
	vector := []complex128{complex(math.Sqrt(0.75), 0), complex(math.Sqrt(0.25), 0)}

	tests := []struct {
		name   string
		counts sim.Counts
		want   bool
	}{
		{"exact", sim.Counts{"0": 768, "1": 256}, true},
		// 0.25 + atol + rtol*0.25 = 0.28, and 286/1024 = 0.279296875
		{"inside", sim.Counts{"0": 738, "1": 286}, true},
		{"outside", sim.Counts{"0": 700, "1": 324}, false},
		{"missing outcome", sim.Counts{"0": 1024}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(bdsp.Initializer{}, fixedBackend{counts: tt.counts}, WithShots(1024))
			ok, err := v.RunTrial(context.Background(), vector, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestRunMajority(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 3))
	vector := RandomState(rng, 2)

	ok, err := seededVerifier(9).RunMajority(context.Background(), vector, nil, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = New(reversedPreparer{}, fixedBackend{counts: sim.Counts{"11": 10}}, WithShots(10)).
		RunMajority(context.Background(), []complex128{1, 0, 0, 0}, nil, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = seededVerifier(9).RunMajority(context.Background(), vector, nil, 0)
	assert.Error(t, err)
}

func TestMetricsObserveTrials(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	rng := rand.New(rand.NewPCG(4, 4))
	vector := RandomState(rng, 2)

	v := seededVerifier(11, WithMetrics(m))
	for range 2 {
		_, err := v.Trial(context.Background(), vector, nil)
		require.NoError(t, err)
	}

	assert.InDelta(t, 2, testutil.ToFloat64(m.trials.WithLabelValues(string(Sublinear), "pass")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.deviation))
}

func TestAllClose(t *testing.T) {
	// the bound is atol + rtol*|b| = 0.25 + 0.5*0.5 = 0.5
	assert.True(t, AllClose([]float64{1}, []float64{0.5}, 0.5, 0.25))
	assert.False(t, AllClose([]float64{1 + 1.0/1024}, []float64{0.5}, 0.5, 0.25))
	assert.True(t, AllClose(nil, nil, 0, 0))
	assert.False(t, AllClose([]float64{0.5, 0.5}, []float64{0.5}, 1, 1))
}

func TestTheoretical(t *testing.T) {
	probs := Theoretical([]complex128{complex(0.6, 0), complex(0, 0.8)})
	assert.InDeltaSlice(t, []float64{0.36, 0.64}, probs, 1e-12)
}

func TestNormalize(t *testing.T) {
	v, err := Normalize([]complex128{3, 4i})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, real(v[0]), 1e-12)
	assert.InDelta(t, 0.8, imag(v[1]), 1e-12)

	_, err = Normalize([]complex128{0, 0})
	assert.ErrorIs(t, err, ErrZeroVector)
}

func TestRandomState(t *testing.T) {
	rng := rand.New(rand.NewPCG(6, 6))
	for n := 1; n <= 5; n++ {
		v := RandomState(rng, n)
		require.Len(t, v, 1<<n)
		norm := 0.0
		for _, amp := range v {
			norm += cmplx.Abs(amp) * cmplx.Abs(amp)
			assert.GreaterOrEqual(t, real(amp), 0.0)
			assert.GreaterOrEqual(t, imag(amp), 0.0)
		}
		assert.InDelta(t, 1, norm, 1e-12)
	}
}

func TestStrategySplit(t *testing.T) {
	s, err := StrategySplit(BottomUp, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, *s)

	s, err = StrategySplit(TopDown, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, *s)

	s, err = StrategySplit(Sublinear, 4)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = StrategySplit("diagonal", 4)
	assert.Error(t, err)

	two := 2
	assert.Equal(t, Strategy("split_2"), StrategyOf(&two, 16))
	assert.Equal(t, TopDown, StrategyOf(&two, 4))
	assert.Equal(t, TopDown, BottomUp.Next())
	assert.Equal(t, BottomUp, Sublinear.Next())

	parsed, err := ParseStrategy("Top-Down")
	require.NoError(t, err)
	assert.Equal(t, TopDown, parsed)
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

func TestTrialMeasuresOnlyTargetQubits(t *testing.T) {
	// |10> on the first two of four qubits, no output register declared
	prep := preparerFunc(func([]complex128, bdsp.Options) (*circuit.Circuit, error) {
		c := circuit.New(4)
		c.Append("X", nil, 0)
		return c, nil
	})
	v := New(prep, sim.NewStatevectorBackend(sim.WithSeed(3)), WithShots(256))

	res, err := v.Trial(context.Background(), []complex128{0, 0, 1, 0}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Empirical, 4)
	assert.Equal(t, []float64{0, 0, 1, 0}, res.Empirical)
	assert.True(t, res.Passed)
}

func TestTrialRejectsShortOutput(t *testing.T) {
	prep := preparerFunc(func([]complex128, bdsp.Options) (*circuit.Circuit, error) {
		c := circuit.New(3)
		c.Output = []int{2}
		return c, nil
	})
	v := New(prep, sim.NewStatevectorBackend(sim.WithSeed(3)))

	_, err := v.Trial(context.Background(), []complex128{1, 0, 0, 0}, nil)
	assert.ErrorIs(t, err, ErrShortOutput)
}
