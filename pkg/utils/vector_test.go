package utils

import (
	"math"
	"testing"
)

func TestCosineSimilarity64(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{
			name:     "identical vectors",
			a:        []float64{1, 0, 0},
			b:        []float64{1, 0, 0},
			expected: 1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float64{1, 0, 0},
			b:        []float64{0, 1, 0},
			expected: 0.0,
		},
		{
			name:     "opposite vectors",
			a:        []float64{1, 0, 0},
			b:        []float64{-1, 0, 0},
			expected: -1.0,
		},
		{
			name:     "different lengths",
			a:        []float64{1, 2, 3},
			b:        []float64{1, 2},
			expected: 0.0,
		},
		{
			name:     "zero vector",
			a:        []float64{0, 0, 0},
			b:        []float64{1, 2, 3},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CosineSimilarity64(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 1e-6 {
				t.Errorf("CosineSimilarity64(%v, %v) = %v, expected %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestDotProduct64(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{
			name:     "simple dot product",
			a:        []float64{1, 2, 3},
			b:        []float64{4, 5, 6},
			expected: 32.0, // 1*4 + 2*5 + 3*6 = 4 + 10 + 18 = 32
		},
		{
			name:     "orthogonal vectors",
			a:        []float64{1, 0, 0},
			b:        []float64{0, 1, 0},
			expected: 0.0,
		},
		{
			name:     "different lengths",
			a:        []float64{1, 2, 3},
			b:        []float64{1, 2},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DotProduct64(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 1e-6 {
				t.Errorf("DotProduct64(%v, %v) = %v, expected %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestL2Normalize(t *testing.T) {
	t.Parallel()

	t.Run("normalizes in place", func(t *testing.T) {
		v := []float64{3, 4}
		L2Normalize(v)
		if math.Abs(v[0]-0.6) > 1e-9 || math.Abs(v[1]-0.8) > 1e-9 {
			t.Errorf("expected [0.6, 0.8], got %v", v)
		}
		mag := math.Sqrt(v[0]*v[0] + v[1]*v[1])
		if math.Abs(mag-1.0) > 1e-9 {
			t.Errorf("expected unit magnitude, got %v", mag)
		}
	})

	t.Run("leaves zero vector untouched", func(t *testing.T) {
		v := []float64{0, 0, 0}
		L2Normalize(v)
		for _, x := range v {
			if x != 0 {
				t.Errorf("expected zero vector to stay zero, got %v", v)
			}
		}
	})

	t.Run("empty vector is a no-op", func(t *testing.T) {
		v := []float64{}
		L2Normalize(v)
		if len(v) != 0 {
			t.Errorf("expected empty vector, got %v", v)
		}
	})
}

func TestMinMaxNormalize(t *testing.T) {
	t.Parallel()

	t.Run("scales into 0 to 1", func(t *testing.T) {
		result := MinMaxNormalize([]float64{1, 3, 5})
		expected := []float64{0, 0.5, 1}
		for i := range expected {
			if math.Abs(result[i]-expected[i]) > 1e-9 {
				t.Errorf("MinMaxNormalize = %v, expected %v", result, expected)
				break
			}
		}
	})

	t.Run("constant input maps to all ones", func(t *testing.T) {
		result := MinMaxNormalize([]float64{5, 5, 5})
		for _, x := range result {
			if x != 1 {
				t.Errorf("expected all ones for constant input, got %v", result)
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		result := MinMaxNormalize(nil)
		if len(result) != 0 {
			t.Errorf("expected empty result, got %v", result)
		}
	})
}

func TestTopKByScore(t *testing.T) {
	t.Parallel()
	t.Run("basic top k", func(t *testing.T) {
		items := []ScoredItem[string]{
			{Item: "a", Score: 0.5},
			{Item: "b", Score: 0.9},
			{Item: "c", Score: 0.3},
			{Item: "d", Score: 0.7},
			{Item: "e", Score: 0.1},
		}

		result := TopKByScore(items, 3)
		if len(result) != 3 {
			t.Fatalf("expected 3 items, got %d", len(result))
		}

		// Should be sorted descending
		if result[0].Score != 0.9 || result[0].Item != "b" {
			t.Errorf("expected first item to be b with score 0.9, got %v", result[0])
		}
		if result[1].Score != 0.7 || result[1].Item != "d" {
			t.Errorf("expected second item to be d with score 0.7, got %v", result[1])
		}
		if result[2].Score != 0.5 || result[2].Item != "a" {
			t.Errorf("expected third item to be a with score 0.5, got %v", result[2])
		}
	})

	t.Run("k greater than length", func(t *testing.T) {
		items := []ScoredItem[int]{
			{Item: 1, Score: 0.5},
			{Item: 2, Score: 0.9},
		}

		result := TopKByScore(items, 10)
		if len(result) != 2 {
			t.Fatalf("expected 2 items, got %d", len(result))
		}
		if result[0].Score != 0.9 {
			t.Errorf("expected first score 0.9, got %f", result[0].Score)
		}
	})

	t.Run("k equals length", func(t *testing.T) {
		items := []ScoredItem[int]{
			{Item: 1, Score: 0.3},
			{Item: 2, Score: 0.9},
			{Item: 3, Score: 0.6},
		}

		result := TopKByScore(items, 3)
		if len(result) != 3 {
			t.Fatalf("expected 3 items, got %d", len(result))
		}
	})

	t.Run("k is zero", func(t *testing.T) {
		items := []ScoredItem[int]{
			{Item: 1, Score: 0.5},
		}

		result := TopKByScore(items, 0)
		if result != nil {
			t.Errorf("expected nil for k=0, got %v", result)
		}
	})

	t.Run("empty items", func(t *testing.T) {
		var items []ScoredItem[int]

		result := TopKByScore(items, 5)
		if result != nil {
			t.Errorf("expected nil for empty items, got %v", result)
		}
	})

	t.Run("k is one", func(t *testing.T) {
		items := []ScoredItem[string]{
			{Item: "low", Score: 0.1},
			{Item: "high", Score: 0.9},
			{Item: "mid", Score: 0.5},
		}

		result := TopKByScore(items, 1)
		if len(result) != 1 {
			t.Fatalf("expected 1 item, got %d", len(result))
		}
		if result[0].Item != "high" || result[0].Score != 0.9 {
			t.Errorf("expected high with 0.9, got %v", result[0])
		}
	})

	t.Run("duplicate scores", func(t *testing.T) {
		items := []ScoredItem[int]{
			{Item: 1, Score: 0.5},
			{Item: 2, Score: 0.5},
			{Item: 3, Score: 0.9},
			{Item: 4, Score: 0.5},
		}

		result := TopKByScore(items, 2)
		if len(result) != 2 {
			t.Fatalf("expected 2 items, got %d", len(result))
		}
		if result[0].Score != 0.9 {
			t.Errorf("expected first score 0.9, got %f", result[0].Score)
		}
		if result[1].Score != 0.5 {
			t.Errorf("expected second score 0.5, got %f", result[1].Score)
		}
	})
}

func BenchmarkTopKByScore(b *testing.B) {
	// Simulate 10,000 items (typical for in-memory search)
	items := make([]ScoredItem[int], 10000)
	for i := range items {
		items[i] = ScoredItem[int]{
			Item:  i,
			Score: float64(i%1000) / 1000.0,
		}
	}

	b.Run("k=10", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			TopKByScore(items, 10)
		}
	})

	b.Run("k=100", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			TopKByScore(items, 100)
		}
	})

	b.Run("k=1000", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			TopKByScore(items, 1000)
		}
	})
}
