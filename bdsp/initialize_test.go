package bdsp

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qdeck/bdsp/circuit"
	"github.com/qdeck/bdsp/sim"
)

func randomState(rng *rand.Rand, n int) []complex128 {
	v := make([]complex128, 1<<n)
	norm := 0.0
	for i := range v {
		v[i] = complex(rng.Float64(), rng.Float64())
		norm += real(v[i])*real(v[i]) + imag(v[i])*imag(v[i])
	}
	for i := range v {
		v[i] /= complex(math.Sqrt(norm), 0)
	}
	return v
}

func TestMultiplexMatchesControlledRotations(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	angles := []float64{0.3, -1.2, 2.5, 0.9}
	controls := []int{1, 2}

	for _, gate := range []string{"RY", "RZ"} {
		for v := range angles {
			t.Run(fmt.Sprintf("%s/v=%d", gate, v), func(t *testing.T) {
				c := circuit.New(3)
				// put the target in a generic state so RZ phases are visible
				c.Append("RY", []float64{rng.Float64() + 0.2}, 0)
				for b, q := range controls {
					if v>>b&1 == 1 {
						c.Append("X", nil, q)
					}
				}
				reference := c.Clone()
				multiplex(c, gate, angles, controls, 0)
				reference.Append(gate, []float64{angles[v]}, 0)

				got, err := sim.Run(c)
				require.NoError(t, err)
				want, err := sim.Run(reference)
				require.NoError(t, err)
				for i := range want.Amplitudes {
					assert.InDelta(t, 0, cmplx.Abs(got.Amplitudes[i]-want.Amplitudes[i]), 1e-12, "amplitude %d", i)
				}
			})
		}
	}
}

func TestMultiplexSkipsZeroAngles(t *testing.T) {
	c := circuit.New(3)
	multiplex(c, "RY", []float64{0, 0, 0, 0}, []int{1, 2}, 0)
	assert.Empty(t, c.Gates)
}

func TestInitializeExactMarginals(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	for n := 1; n <= 4; n++ {
		vector := randomState(rng, n)
		want := make([]float64, len(vector))
		for i, amp := range vector {
			want[i] = real(amp * cmplx.Conj(amp))
		}

		for s := 1; s <= n; s++ {
			t.Run(fmt.Sprintf("n=%d/split=%d", n, s), func(t *testing.T) {
				c, err := Initialize(vector, WithSplit(s))
				require.NoError(t, err)
				assert.Equal(t, QubitCount(n, s), c.NumQubits)
				require.Len(t, c.Output, n)

				state, err := sim.Run(c)
				require.NoError(t, err)
				assert.InDeltaSlice(t, want, state.Marginal(c.Output), 1e-10)
			})
		}
	}
}

func TestTopDownPreparesPureState(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	vector := randomState(rng, 3)

	c, err := Initialize(vector, WithSplit(3))
	require.NoError(t, err)
	require.Equal(t, 3, c.NumQubits)

	state, err := sim.Run(c)
	require.NoError(t, err)

	// equal up to one global phase
	var global complex128
	for i, amp := range vector {
		idx := 0
		for k, q := range c.Output {
			idx |= (i >> (len(c.Output) - 1 - k) & 1) << q
		}
		got := state.Amplitudes[idx]
		if global == 0 {
			global = got / amp
		}
		assert.InDelta(t, 0, cmplx.Abs(got-global*amp), 1e-10, "amplitude %d", i)
	}
	assert.InDelta(t, 1, cmplx.Abs(global), 1e-10)
}

func TestDefaultSplitIsSublinear(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	vector := randomState(rng, 4)

	c, err := Initialize(vector, Options{})
	require.NoError(t, err)
	assert.Equal(t, QubitCount(4, DefaultSplit(4)), c.NumQubits)
	assert.Equal(t, 11, c.NumQubits)
}

func TestStrategiesTradeDepthForWidth(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	vector := randomState(rng, 6)

	bottomUp, err := Initialize(vector, WithSplit(1))
	require.NoError(t, err)
	topDown, err := Initialize(vector, WithSplit(6))
	require.NoError(t, err)

	assert.Equal(t, 63, bottomUp.NumQubits)
	assert.Equal(t, 6, topDown.NumQubits)
	assert.Less(t, bottomUp.Depth(), topDown.Depth())
}

func TestQubitCount(t *testing.T) {
	assert.Equal(t, 15, QubitCount(4, 1))
	assert.Equal(t, 11, QubitCount(4, 2))
	assert.Equal(t, 7, QubitCount(4, 3))
	assert.Equal(t, 4, QubitCount(4, 4))
	assert.Equal(t, 1, QubitCount(1, 1))
}

func TestInitializeErrors(t *testing.T) {
	tests := []struct {
		name   string
		vector []complex128
		opts   Options
		want   error
	}{
		{"empty", nil, Options{}, ErrNotPowerOfTwo},
		{"single amplitude", []complex128{1}, Options{}, ErrNotPowerOfTwo},
		{"length three", []complex128{1, 0, 0}, Options{}, ErrNotPowerOfTwo},
		{"not normalized", []complex128{1, 1}, Options{}, ErrNotNormalized},
		{"split zero", []complex128{1, 0, 0, 0}, WithSplit(0), ErrSplitRange},
		{"split too large", []complex128{1, 0, 0, 0}, WithSplit(3), ErrSplitRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Initialize(tt.vector, tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestZeroAmplitudes(t *testing.T) {
	vector := []complex128{0, 0, 0, 0, 0, 1i, 0, 0}
	for s := 1; s <= 3; s++ {
		c, err := Initialize(vector, WithSplit(s))
		require.NoError(t, err)
		state, err := sim.Run(c)
		require.NoError(t, err)
		assert.InDelta(t, 1, state.Marginal(c.Output)[5], 1e-12)
	}
}

func TestParseOptParams(t *testing.T) {
	opts, err := ParseOptParams(map[string]any{"split": nil})
	require.NoError(t, err)
	assert.Nil(t, opts.Split)

	opts, err = ParseOptParams(map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, opts.Split)

	opts, err = ParseOptParams(map[string]any{"split": 2})
	require.NoError(t, err)
	require.NotNil(t, opts.Split)
	assert.Equal(t, 2, *opts.Split)

	opts, err = ParseOptParams(map[string]any{"split": 4.0})
	require.NoError(t, err)
	assert.Equal(t, 4, *opts.Split)

	_, err = ParseOptParams(map[string]any{"split": 1.5})
	assert.ErrorIs(t, err, ErrBadOptParam)

	_, err = ParseOptParams(map[string]any{"split": "1"})
	assert.ErrorIs(t, err, ErrBadOptParam)
}

func TestQASMRoundTripPreservesMarginal(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 22))
	vector := randomState(rng, 3)

	for s := 1; s <= 3; s++ {
		c, err := Initialize(vector, WithSplit(s))
		require.NoError(t, err)

		parsed := circuit.New(0)
		require.NoError(t, parsed.ParseQASM(c.ToQASM()))
		require.Equal(t, c.Output, parsed.Output)
		assert.Equal(t, c.Stats().CNOTs, parsed.Stats().CNOTs)

		want, err := sim.Run(c)
		require.NoError(t, err)
		got, err := sim.Run(parsed)
		require.NoError(t, err)
		assert.InDeltaSlice(t, want.Marginal(c.Output), got.Marginal(parsed.Output), 1e-9)
	}
}
