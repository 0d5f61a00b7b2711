package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExactMatch_NormalizesCaseAndWhitespace verifies trim/lowercase
// normalization before comparison.
func TestExactMatch_NormalizesCaseAndWhitespace(t *testing.T) {
	assert.Equal(t, 1, ExactMatch("  Paris ", "paris"))
	assert.Equal(t, 1, ExactMatch("PARIS", "Paris"))
	assert.Equal(t, 0, ExactMatch("Paris, France", "Paris"))
	assert.Equal(t, 1, ExactMatch("", ""))
}

// TestTokenF1_AsymmetricSets verifies the set-based precision/recall
// arithmetic with differently sized token sets.
func TestTokenF1_AsymmetricSets(t *testing.T) {
	// actual: {the, cat, sat, on, mat} (5), expected adds "red" (6 unique).
	// intersection = 5, precision = 1.0, recall = 5/6.
	got := TokenF1("the cat sat on mat", "the cat sat on the red mat")
	precision, recall := 1.0, 5.0/6.0
	want := 2 * precision * recall / (precision + recall)
	assert.InDelta(t, want, got, 1e-12)

	// Swapping the arguments flips precision and recall but F1 is the
	// harmonic mean, so this particular pair is symmetric.
	assert.InDelta(t, got, TokenF1("the cat sat on the red mat", "the cat sat on mat"), 1e-12)
}

// TestTokenF1_NotSymmetricInComponents verifies that precision and recall
// swap under argument order by checking an asymmetric containment case.
func TestTokenF1_NotSymmetricInComponents(t *testing.T) {
	// actual ⊂ expected: precision 1, recall 1/3 → F1 = 0.5.
	assert.InDelta(t, 0.5, TokenF1("alpha", "alpha beta gamma"), 1e-12)
	// Same value either way here; the component asymmetry shows once the
	// sets only overlap partially.
	a := TokenF1("alpha beta", "alpha gamma delta")
	b := TokenF1("alpha gamma delta", "alpha beta")
	assert.InDelta(t, a, b, 1e-12)
}

// TestTokenF1_EmptyInputs verifies the empty-set boundary.
func TestTokenF1_EmptyInputs(t *testing.T) {
	assert.Zero(t, TokenF1("", "the cat"))
	assert.Zero(t, TokenF1("the cat", ""))
	assert.Zero(t, TokenF1("", ""))
}

// TestBLEU_IdenticalSentence verifies a perfect score for identical input
// long enough to contain 4-grams.
func TestBLEU_IdenticalSentence(t *testing.T) {
	assert.InDelta(t, 1.0, BLEU("the cat sat on the mat", "the cat sat on the mat"), 1e-12)
}

// TestBLEU_NoSharedNgrams verifies a zero score with disjoint vocabulary.
func TestBLEU_NoSharedNgrams(t *testing.T) {
	assert.Zero(t, BLEU("a b c d", "w x y z"))
}

// TestBLEU_ZeroWithoutHigherOrderNgrams verifies that inputs shorter than
// the maximum order score zero, since the missing orders have zero
// precision and no smoothing is applied.
func TestBLEU_ZeroWithoutHigherOrderNgrams(t *testing.T) {
	assert.Zero(t, BLEU("one two three", "one two three"))
}

// TestBLEU_ClippedCounts verifies that a repeated n-gram only counts up to
// its occurrences in the reference.
func TestBLEU_ClippedCounts(t *testing.T) {
	// "the" appears three times in actual but twice in expected, so only
	// two unigram matches are credited for it.
	got := BLEU("the the the cat sat on", "the cat sat on the mat")
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 1.0)
}

// TestBLEU_EmptyInputs verifies the empty-token boundary.
func TestBLEU_EmptyInputs(t *testing.T) {
	assert.Zero(t, BLEU("", "the cat"))
	assert.Zero(t, BLEU("the cat", ""))
}

// TestRougeL_Identical verifies a perfect score for identical strings.
func TestRougeL_Identical(t *testing.T) {
	assert.InDelta(t, 1.0, RougeL("the cat sat", "the cat sat"), 1e-12)
}

// TestRougeL_EmptyString verifies the empty-string boundary.
func TestRougeL_EmptyString(t *testing.T) {
	assert.Zero(t, RougeL("", "anything"))
	assert.Zero(t, RougeL("anything", ""))
	assert.Zero(t, RougeL("", ""))
}

// TestRougeL_PartialOverlap verifies the 2*LCS/(lenA+lenB) formula on a
// hand-computed example.
func TestRougeL_PartialOverlap(t *testing.T) {
	// LCS("abcd", "abxd") = "abd", length 3.
	assert.InDelta(t, 2.0*3.0/8.0, RougeL("abcd", "abxd"), 1e-12)
}

// TestCosineSimilarity_Bounds verifies identical, disjoint and empty inputs.
func TestCosineSimilarity_Bounds(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity("the cat sat", "the cat sat"), 1e-12)
	assert.Zero(t, CosineSimilarity("a b c", "x y z"))
	assert.Zero(t, CosineSimilarity("", "a b c"))
	assert.Zero(t, CosineSimilarity("a b c", ""))
}

// TestCosineSimilarity_FrequencyWeighting verifies that repeated words
// contribute through frequency, not presence only.
func TestCosineSimilarity_FrequencyWeighting(t *testing.T) {
	got := CosineSimilarity("the the cat", "the cat cat")
	// vectors over {the, cat}: (2,1) and (1,2) → cos = 4/5.
	assert.InDelta(t, 0.8, got, 1e-12)
}

// TestScore_PerfectAnswer verifies the property that an exact answer scores
// 1.0 on every metric (the answer must be long enough for 4-grams).
func TestScore_PerfectAnswer(t *testing.T) {
	set := Score("the quick brown fox jumps high", "the quick brown fox jumps high")
	assert.Equal(t, 1, set.ExactMatch)
	assert.InDelta(t, 1.0, set.TokenF1, 1e-12)
	assert.InDelta(t, 1.0, set.BLEU, 1e-12)
	assert.InDelta(t, 1.0, set.RougeL, 1e-12)
	assert.InDelta(t, 1.0, set.CosineSimilarity, 1e-12)
}

// TestScore_RangeInvariant verifies that all scores stay within [0, 1] for
// a mixed bag of inputs.
func TestScore_RangeInvariant(t *testing.T) {
	pairs := [][2]string{
		{"yes", "no"},
		{"the cat sat on the mat", "a dog slept under a chair"},
		{"partial overlap here", "some overlap here too"},
		{"", "expected"},
		{"actual", ""},
		{"repeat repeat repeat", "repeat"},
	}
	for _, pair := range pairs {
		set := Score(pair[0], pair[1])
		require.GreaterOrEqual(t, set.TokenF1, 0.0)
		require.LessOrEqual(t, set.TokenF1, 1.0)
		require.GreaterOrEqual(t, set.BLEU, 0.0)
		require.LessOrEqual(t, set.BLEU, 1.0)
		require.GreaterOrEqual(t, set.RougeL, 0.0)
		require.LessOrEqual(t, set.RougeL, 1.0)
		require.GreaterOrEqual(t, set.CosineSimilarity, 0.0)
		require.LessOrEqual(t, set.CosineSimilarity, 1.0)
		require.Contains(t, []int{0, 1}, set.ExactMatch)
	}
}

// TestAggregateSets_Accuracy verifies the accuracy average over a small set.
func TestAggregateSets_Accuracy(t *testing.T) {
	sets := []MetricSet{
		{ExactMatch: 1, TokenF1: 0.9},
		{ExactMatch: 0, TokenF1: 0.6},
		{ExactMatch: 1, TokenF1: 0.3},
	}
	agg := AggregateSets(sets)
	assert.Equal(t, 3, agg.TotalEntries)
	assert.Equal(t, 2, agg.ExactMatchCount)
	assert.InDelta(t, 2.0/3.0, agg.Accuracy, 1e-12)
	assert.InDelta(t, 0.6, agg.AvgTokenF1, 1e-12)
}

// TestAggregateSets_Empty verifies the zero value for no scored rows.
func TestAggregateSets_Empty(t *testing.T) {
	agg := AggregateSets(nil)
	assert.Zero(t, agg.TotalEntries)
	assert.Zero(t, agg.Accuracy)
}

// TestDetermineWinner verifies the winner policy and confidence values.
func TestDetermineWinner(t *testing.T) {
	winner, confidence := DetermineWinner(0.8, 0.3)
	assert.Equal(t, WinnerA, winner)
	assert.InDelta(t, 0.5, confidence, 1e-12)

	winner, confidence = DetermineWinner(0.3, 0.8)
	assert.Equal(t, WinnerB, winner)
	assert.InDelta(t, 0.5, confidence, 1e-12)

	winner, confidence = DetermineWinner(0.4, 0.4)
	assert.Equal(t, WinnerTie, winner)
	assert.InDelta(t, 0.5, confidence, 1e-12)

	// Both wrong still ties; finer metrics are not consulted.
	winner, _ = DetermineWinner(0, 0)
	assert.Equal(t, WinnerTie, winner)
}
