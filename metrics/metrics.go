// Package metrics implements the text similarity scores used to grade a
// model response against an expected answer, plus cross-row aggregation
// and the winner policy for dual-model comparisons.
//
// All scoring functions are pure and side-effect free. Every score lies in
// [0, 1]; exact match is reported as 0 or 1.
package metrics

import (
	"math"
	"strings"
)

// bleuMaxOrder is the largest n-gram order used by the BLEU score.
const bleuMaxOrder = 4

// MetricSet holds the scores of one response against one expected answer.
type MetricSet struct {
	// ExactMatch is 1 when the normalized strings are equal, 0 otherwise.
	ExactMatch int `json:"exact_match"`
	// TokenF1 is the harmonic mean of token-set precision and recall.
	TokenF1 float64 `json:"token_f1"`
	// BLEU is the geometric mean of clipped 1..4-gram precisions.
	BLEU float64 `json:"bleu_score"`
	// RougeL is the character-level longest-common-subsequence F score.
	RougeL float64 `json:"rouge_score"`
	// CosineSimilarity is the bag-of-words cosine between both texts.
	CosineSimilarity float64 `json:"cosine_similarity"`
}

// Score computes the full metric set for a single response.
func Score(actual, expected string) MetricSet {
	return MetricSet{
		ExactMatch:       ExactMatch(actual, expected),
		TokenF1:          TokenF1(actual, expected),
		BLEU:             BLEU(actual, expected),
		RougeL:           RougeL(actual, expected),
		CosineSimilarity: CosineSimilarity(actual, expected),
	}
}

// ExactMatch reports whether actual equals expected after trimming
// surrounding whitespace and lowercasing. Returns 1 on match, 0 otherwise.
func ExactMatch(actual, expected string) int {
	if strings.ToLower(strings.TrimSpace(actual)) == strings.ToLower(strings.TrimSpace(expected)) {
		return 1
	}
	return 0
}

// TokenF1 computes an F1 score over whitespace tokens treated as sets.
// Precision is |intersection| / |actual tokens|, recall is
// |intersection| / |expected tokens|. Returns 0 when either side has no
// tokens.
func TokenF1(actual, expected string) float64 {
	actualTokens := tokenSet(actual)
	expectedTokens := tokenSet(expected)
	if len(actualTokens) == 0 || len(expectedTokens) == 0 {
		return 0
	}

	common := 0
	for token := range actualTokens {
		if _, ok := expectedTokens[token]; ok {
			common++
		}
	}

	precision := float64(common) / float64(len(actualTokens))
	recall := float64(common) / float64(len(expectedTokens))
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// BLEU computes a BLEU score as the geometric mean of 1..4-gram precisions
// with clipped counts. If any order has zero precision the score is 0; no
// smoothing or brevity penalty is applied. This is a deliberate
// simplification of the canonical algorithm.
func BLEU(actual, expected string) float64 {
	actualTokens := strings.Fields(strings.ToLower(actual))
	expectedTokens := strings.Fields(strings.ToLower(expected))
	if len(actualTokens) == 0 || len(expectedTokens) == 0 {
		return 0
	}

	precisions := make([]float64, 0, bleuMaxOrder)
	for n := 1; n <= bleuMaxOrder; n++ {
		actualNgrams := ngramCounts(actualTokens, n)
		if len(actualNgrams) == 0 {
			precisions = append(precisions, 0)
			continue
		}
		expectedNgrams := ngramCounts(expectedTokens, n)

		// Clipped counts: each n-gram matches at most the minimum of its
		// occurrences on either side.
		matches := 0
		total := 0
		for gram, count := range actualNgrams {
			total += count
			if expectedCount, ok := expectedNgrams[gram]; ok {
				matches += min(count, expectedCount)
			}
		}
		precisions = append(precisions, float64(matches)/float64(total))
	}

	logSum := 0.0
	for _, p := range precisions {
		if p == 0 {
			return 0
		}
		logSum += math.Log(p)
	}
	return math.Exp(logSum / float64(len(precisions)))
}

// RougeL computes a ROUGE-L F score over characters:
// 2*LCS(actual, expected) / (len(actual) + len(expected)).
// Returns 0 when either string is empty.
func RougeL(actual, expected string) float64 {
	if len(actual) == 0 || len(expected) == 0 {
		return 0
	}
	lcs := lcsLength(actual, expected)
	return float64(2*lcs) / float64(len(actual)+len(expected))
}

// CosineSimilarity computes the cosine between bag-of-words frequency
// vectors over the union vocabulary of both texts. Returns 0 when either
// vector has zero magnitude.
func CosineSimilarity(actual, expected string) float64 {
	actualCounts := tokenCounts(actual)
	expectedCounts := tokenCounts(expected)

	dot := 0
	for word, count := range actualCounts {
		if expectedCount, ok := expectedCounts[word]; ok {
			dot += count * expectedCount
		}
	}

	magActual := vectorMagnitude(actualCounts)
	magExpected := vectorMagnitude(expectedCounts)
	if magActual == 0 || magExpected == 0 {
		return 0
	}
	return float64(dot) / (magActual * magExpected)
}

// tokenSet lowercases text and splits it on whitespace into a set.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(text)) {
		set[token] = struct{}{}
	}
	return set
}

// tokenCounts lowercases text and splits it on whitespace into a frequency map.
func tokenCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		counts[token]++
	}
	return counts
}

// ngramCounts returns the multiset of token n-grams of the given order.
func ngramCounts(tokens []string, n int) map[string]int {
	if len(tokens) < n {
		return nil
	}
	counts := make(map[string]int, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], " ")]++
	}
	return counts
}

// lcsLength computes the longest common subsequence length of two strings
// byte-wise with the standard O(len(a)*len(b)) dynamic program, using a
// rolling row to keep memory linear.
func lcsLength(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// vectorMagnitude returns the Euclidean norm of a frequency vector.
func vectorMagnitude(counts map[string]int) float64 {
	sum := 0
	for _, count := range counts {
		sum += count * count
	}
	return math.Sqrt(float64(sum))
}
