package ident

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoSignatureBank holds reciprocal ratios, so that transitions fall at 0.2,
// 0.5 and 0.8 of the signal for signature 0 and at 0.3 and 0.6 for 1.
func twoSignatureBank(t *testing.T) *Bank {
	t.Helper()
	b, err := NewBank([][]float64{
		{1 / 0.2, 1 / 0.5, 1 / 0.8},
		{1 / 0.3, 1 / 0.6},
	})
	require.NoError(t, err)
	return b
}

func TestTemplate(t *testing.T) {
	// Transitions at 0.3, 0.45 and 0.7; samples at k/8.
	got := Template([]float64{1 / 0.3, 1 / 0.45, 1 / 0.7}, 7)
	want := []float64{1, 1, -1, 1, 1, -1, -1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Template mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, Template([]float64{2}, 0))

	// Ratios below 1 never cross inside the signal.
	for _, v := range Template([]float64{0.2, 0.5, 0.8}, 20) {
		assert.Equal(t, 1.0, v)
	}
}

func TestTemplate_Values(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(200)
		ratios := make([]float64, 1+rng.Intn(6))
		for i := range ratios {
			ratios[i] = 1 + 9*rng.Float64()
		}
		tmpl := Template(ratios, n)
		require.Len(t, tmpl, n)
		for _, v := range tmpl {
			if v != 1 && v != -1 {
				t.Fatalf("template value %v not in {-1,+1}", v)
			}
		}
	}
}

func TestDistance(t *testing.T) {
	tmpl := Template([]float64{5, 2, 1.25}, 20)

	assert.Equal(t, 0.0, Distance(tmpl, tmpl, 0))

	flatSig := make([]float64, 20)
	assert.Equal(t, 0.0, Distance(flatSig, tmpl, 0))
	assert.Equal(t, 0.0, Distance(tmpl, tmpl, 20))
	assert.Equal(t, 0.0, Distance(tmpl, tmpl, 50))

	other := Template([]float64{1 / 0.3, 1 / 0.6}, 20)
	assert.InDelta(t, 16, Distance(tmpl, other, 0), 1e-9)
	// Offsetting past the mismatches at 4, 5, 10 and 11 leaves 16..19.
	assert.Greater(t, Distance(tmpl, other, 12), 0.0)
	assert.Less(t, Distance(tmpl, other, 12), Distance(tmpl, other, 0))
}

func TestScore_Range(t *testing.T) {
	b, err := NewBank([][]float64{{5, 2, 1.25}, {1 / 0.3, 1 / 0.6}, {1.1, 1.5, 3, 7}})
	require.NoError(t, err)
	m, err := NewMatcher(b, 100, 25, 6)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(9))
	for trial := 0; trial < 100; trial++ {
		sig := make([]float64, 100)
		for i := range sig {
			sig[i] = rng.Float64()
		}
		for _, tmpl := range m.Templates() {
			s := Score(Distance(sig, tmpl, 25))
			assert.Greater(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
	assert.Greater(t, Score(1e6), 0.0)
	assert.Equal(t, 1.0, Score(0))
}

func TestMatcher_TwoSignatureScenario(t *testing.T) {
	b := twoSignatureBank(t)
	m, err := NewMatcher(b, 20, 0, 6)
	require.NoError(t, err)

	signal := Template(b.Ratios(0), 20)
	ranked := m.Rank(signal, 0)
	require.Len(t, ranked, 2)
	assert.Equal(t, 0, ranked[0].ID)
	assert.Equal(t, 1.0, ranked[0].Score)
	assert.Equal(t, 1, ranked[1].ID)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
	assert.InDelta(t, math.Exp(-16), ranked[1].Score, 1e-12)

	assert.Len(t, m.Rank(signal, 1), 1)
}

func TestMatcher_RankFlatSignal(t *testing.T) {
	m, err := NewMatcher(twoSignatureBank(t), 20, 0, 6)
	require.NoError(t, err)
	assert.Nil(t, m.Rank(make([]float64, 20), 3))
}

func TestMatcher_Robust(t *testing.T) {
	b := twoSignatureBank(t)
	m, err := NewMatcher(b, 20, 0, 6)
	require.NoError(t, err)
	t0 := Template(b.Ratios(0), 20)
	t1 := Template(b.Ratios(1), 20)
	noisy0 := append([]float64(nil), t0...)
	noisy0[0] = 0.5

	tests := []struct {
		name      string
		signals   [][]float64
		wantID    int
		wantVotes int
		wantScore float64
		wantSet   []int
	}{
		{"majority", [][]float64{t0, t1, t0, t0}, 0, 3, 1, []int{0, 1}},
		{"equal votes and scores go to lower id", [][]float64{t1, t0, t1, t0}, 0, 2, 1, []int{0, 1}},
		{"equal votes go to higher mean score", [][]float64{noisy0, t1}, 1, 1, 1, []int{1, 0}},
		{"flat signals abstain", [][]float64{make([]float64, 20), t1}, 1, 1, 1, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := m.Robust(tt.signals)
			require.True(t, ok)
			assert.Equal(t, tt.wantID, d.ID)
			assert.Equal(t, tt.wantVotes, d.Votes)
			assert.InDelta(t, tt.wantScore, d.Score, 1e-12)
			var ids []int
			for _, s := range d.IDSet {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.wantSet, ids)
		})
	}

	_, ok := m.Robust([][]float64{make([]float64, 20)})
	assert.False(t, ok)
	_, ok = m.Robust(nil)
	assert.False(t, ok)
}

func TestMatcher_Pooled(t *testing.T) {
	b := twoSignatureBank(t)
	m, err := NewMatcher(b, 20, 0, 1)
	require.NoError(t, err)
	t0 := Template(b.Ratios(0), 20)

	d, ok := m.Identify(StrategyPooled, [][]float64{t0, t0, t0})
	require.True(t, ok)
	assert.Equal(t, 0, d.ID)
	assert.Equal(t, 3, d.Votes)
	assert.Equal(t, 1.0, d.Score)
	assert.Len(t, d.IDSet, 1)

	_, ok = m.Pooled(nil)
	assert.False(t, ok)
}

func TestNewMatcher_Errors(t *testing.T) {
	b := twoSignatureBank(t)
	_, err := NewMatcher(nil, 20, 0, 6)
	assert.True(t, errors.Is(err, ErrEmptyBank))
	_, err = NewMatcher(b, 0, 0, 6)
	assert.Error(t, err)
	_, err = NewMatcher(b, 20, 20, 6)
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyRobust, s)
	s, err = ParseStrategy("pooled")
	require.NoError(t, err)
	assert.Equal(t, StrategyPooled, s)
	_, err = ParseStrategy("voting")
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}

func TestLoadBank(t *testing.T) {
	input := `# three crowns
1.67, 2.5 5

3.33	1.67
  # trailing comment
`
	b, err := LoadBank(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())
	assert.Equal(t, []float64{1.67, 2.5, 5}, b.Ratios(0))
	assert.Equal(t, []float64{3.33, 1.67}, b.Ratios(1))
	assert.Nil(t, b.Ratios(2))

	// Ratios returns a copy.
	b.Ratios(0)[0] = 99
	assert.Equal(t, 1.67, b.Ratios(0)[0])
}

func TestLoadBank_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrEmptyBank},
		{"comments only", "# nothing\n\n", ErrEmptyBank},
		{"not a number", "1.5 abc\n", ErrInvalidRatio},
		{"negative", "1.5 -2\n", ErrInvalidRatio},
		{"zero", "0\n", ErrInvalidRatio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBank(strings.NewReader(tt.input))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
