package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine_Identical(t *testing.T) {
	v := []float32{0.1, 0.2, 0.3, 0.4}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-6)

	small := []float32{0.001, 0.002}
	assert.InDelta(t, 1.0, Cosine(small, small), 1e-6)
}

func TestCosine_Symmetric(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.5, 0.5, 0},
		{-1, 2, 3},
		{0.3, -0.7, 0.2},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			assert.Equal(t, Cosine(a, b), Cosine(b, a))
		}
	}
}

func TestCosine_Orthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestCosine_Opposite(t *testing.T) {
	assert.InDelta(t, -1.0, Cosine([]float32{1, 2}, []float32{-1, -2}), 1e-6)
}

func TestCosine_Empty(t *testing.T) {
	assert.Zero(t, Cosine(nil, []float32{1, 2}))
	assert.Zero(t, Cosine([]float32{1}, nil))
	assert.Zero(t, Cosine(nil, nil))
}

func TestCosine_ZeroVector(t *testing.T) {
	assert.Zero(t, Cosine([]float32{0, 0, 0}, []float32{1, 2, 3}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{0, 0}))
}

func TestCosine_LengthMismatchUsesSharedPrefix(t *testing.T) {
	a := []float32{1, 0, 5, 5}
	b := []float32{1, 0}
	assert.InDelta(t, 1.0, Cosine(a, b), 1e-6)
}

func TestCosine_IgnoresNonFinite(t *testing.T) {
	a := []float32{1, float32(math.NaN()), 0}
	b := []float32{1, 1, 0}
	got := Cosine(a, b)
	assert.False(t, math.IsNaN(got))
	assert.InDelta(t, 1.0, got, 1e-6)
}

func TestLexical(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "how many licensed clinicians", "how many licensed clinicians", 1},
		{"empty left", "", "abc", 0},
		{"empty right", "abc", "", 0},
		{"disjoint", "abc", "xyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Lexical(tt.a, tt.b), 1e-9)
		})
	}
}

func TestLexical_Bounds(t *testing.T) {
	pairs := [][2]string{
		{"encryption at rest", "data is encrypted at rest"},
		{"sla", "service level agreement"},
		{"a", "a b"},
		{"aaaa", "aa"},
	}
	for _, p := range pairs {
		s := Lexical(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
		assert.Equal(t, s, Lexical(p[1], p[0]), "lexical similarity is symmetric")
	}
}

func TestLexical_RanksCloserTextHigher(t *testing.T) {
	query := "disaster recovery plan"
	near := Lexical(query, "our disaster recovery plan is tested yearly")
	far := Lexical(query, "billing happens monthly")
	assert.Greater(t, near, far)
}

func TestLexical_SingleCharacter(t *testing.T) {
	assert.Equal(t, 1.0, Lexical("x", "x"))
	assert.Zero(t, Lexical("x", "y"))
}

func TestBestLexical(t *testing.T) {
	q := "how many licensed clinicians"
	got := BestLexical(q, "how many licensed clinicians we employ 500 licensed clinicians", "how many licensed clinicians")
	assert.Equal(t, 1.0, got)
	assert.Zero(t, BestLexical(q))
	assert.Zero(t, BestLexical(q, ""))
}
