package core

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSpans_OverlapKeepsCreditCard(t *testing.T) {
	text := "4111-1111-1111-1111"
	spans := []Span{
		{Start: 0, End: 16, Label: CategoryGenericPII, Confidence: 0.9, Source: "analyzer"},
		{Start: 0, End: 19, Label: CategoryCreditCard, Confidence: 1.0, Source: "pattern"},
	}

	merged := MergeSpans(spans, DefaultPriorities())
	require.Len(t, merged, 1)
	assert.Equal(t, CategoryCreditCard, merged[0].Label)

	out, err := ApplySpans(text, merged)
	require.NoError(t, err)
	assert.Equal(t, "[CREDIT_CARD_REDACTED]", out)
}

func TestMergeSpans_TieBreaks(t *testing.T) {
	tests := []struct {
		name  string
		spans []Span
		want  Span
	}{
		{
			name: "longer span wins at same start",
			spans: []Span{
				{Start: 0, End: 4, Label: CategorySSN, Confidence: 1, Source: "a"},
				{Start: 0, End: 10, Label: CategoryLocation, Confidence: 0.5, Source: "b"},
			},
			want: Span{Start: 0, End: 10, Label: CategoryLocation, Confidence: 0.5, Source: "b"},
		},
		{
			name: "higher priority wins at equal extent",
			spans: []Span{
				{Start: 2, End: 8, Label: CategoryPerson, Confidence: 0.99, Source: "entity"},
				{Start: 2, End: 8, Label: CategoryEmail, Confidence: 0.6, Source: "pattern"},
			},
			want: Span{Start: 2, End: 8, Label: CategoryEmail, Confidence: 0.6, Source: "pattern"},
		},
		{
			name: "higher confidence wins at equal priority",
			spans: []Span{
				{Start: 2, End: 8, Label: CategoryPerson, Confidence: 0.7, Source: "a"},
				{Start: 2, End: 8, Label: CategoryPerson, Confidence: 0.8, Source: "b"},
			},
			want: Span{Start: 2, End: 8, Label: CategoryPerson, Confidence: 0.8, Source: "b"},
		},
		{
			name: "source breaks remaining ties",
			spans: []Span{
				{Start: 2, End: 8, Label: CategoryPerson, Confidence: 0.8, Source: "zeta"},
				{Start: 2, End: 8, Label: CategoryPerson, Confidence: 0.8, Source: "alpha"},
			},
			want: Span{Start: 2, End: 8, Label: CategoryPerson, Confidence: 0.8, Source: "alpha"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := MergeSpans(tt.spans, DefaultPriorities())
			require.Len(t, merged, 1)
			assert.Equal(t, tt.want, merged[0])
		})
	}
}

func TestMergeSpans_ConfiguredPriorities(t *testing.T) {
	spans := []Span{
		{Start: 0, End: 5, Label: CategoryEmail, Confidence: 1, Source: "a"},
		{Start: 0, End: 5, Label: CategoryPerson, Confidence: 1, Source: "b"},
	}
	table := DefaultPriorities()
	table[CategoryPerson] = 1000

	merged := MergeSpans(spans, table)
	require.Len(t, merged, 1)
	assert.Equal(t, CategoryPerson, merged[0].Label)
}

func TestMergeSpans_EdgeCases(t *testing.T) {
	assert.Empty(t, MergeSpans(nil, DefaultPriorities()))

	dup := Span{Start: 1, End: 3, Label: CategoryPhone, Confidence: 1, Source: "p"}
	assert.Equal(t, []Span{dup}, MergeSpans([]Span{dup, dup, dup}, DefaultPriorities()))

	adjacent := []Span{
		{Start: 5, End: 9, Label: CategoryPhone, Source: "p"},
		{Start: 0, End: 5, Label: CategoryEmail, Source: "p"},
	}
	merged := MergeSpans(adjacent, DefaultPriorities())
	require.Len(t, merged, 2)
	assert.Equal(t, 0, merged[0].Start)
	assert.Equal(t, 5, merged[1].Start)

	// nested span inside an earlier, longer one is discarded whole
	nested := []Span{
		{Start: 0, End: 20, Label: CategoryPerson, Source: "e"},
		{Start: 5, End: 8, Label: CategorySSN, Source: "p"},
		{Start: 18, End: 25, Label: CategorySSN, Source: "p"},
	}
	merged = MergeSpans(nested, DefaultPriorities())
	require.Len(t, merged, 1)
	assert.Equal(t, 20, merged[0].End, "spans are never trimmed")
}

func TestMergeSpans_DoesNotMutateInput(t *testing.T) {
	spans := []Span{
		{Start: 9, End: 12, Label: CategoryPhone, Source: "p"},
		{Start: 0, End: 4, Label: CategoryEmail, Source: "p"},
	}
	orig := append([]Span(nil), spans...)
	MergeSpans(spans, DefaultPriorities())
	assert.Equal(t, orig, spans)
}

func TestMergeSpans_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sources := []string{"pattern", "entity", "analyzer"}

	for round := 0; round < 200; round++ {
		n := rng.Intn(30)
		spans := make([]Span, 0, n)
		for i := 0; i < n; i++ {
			start := rng.Intn(100)
			spans = append(spans, Span{
				Start:      start,
				End:        start + 1 + rng.Intn(15),
				Label:      AllCategories[rng.Intn(len(AllCategories))],
				Confidence: float64(rng.Intn(10)) / 10,
				Source:     sources[rng.Intn(len(sources))],
			})
		}

		merged := MergeSpans(spans, DefaultPriorities())

		// ordered and disjoint
		for i := 1; i < len(merged); i++ {
			assert.GreaterOrEqual(t, merged[i].Start, merged[i-1].End)
		}

		// every accepted span came from the input, every discarded span
		// overlaps an accepted one
		for _, m := range merged {
			assert.Contains(t, spans, m)
		}
		for _, s := range spans {
			covered := false
			for _, m := range merged {
				if m == s || m.Overlaps(s) {
					covered = true
					break
				}
			}
			assert.True(t, covered, "span %s neither kept nor overlapped", s)
		}

		// order of input does not matter
		shuffled := append([]Span(nil), spans...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, merged, MergeSpans(shuffled, DefaultPriorities()))
	}
}
