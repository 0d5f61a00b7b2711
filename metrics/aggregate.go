package metrics

import "math"

// Aggregate holds metric averages across the rows of one evaluation cycle.
// Rows without an expected answer contribute no metric set and are excluded
// from every denominator.
type Aggregate struct {
	// TotalEntries is the number of rows that were scored.
	TotalEntries int `json:"total_entries"`
	// ExactMatchCount is the number of scored rows that matched exactly.
	ExactMatchCount int `json:"exact_match_count"`
	// Accuracy is the mean exact-match score.
	Accuracy float64 `json:"accuracy"`
	// AvgTokenF1 is the mean token F1 score.
	AvgTokenF1 float64 `json:"avg_token_f1"`
	// AvgBLEU is the mean BLEU score.
	AvgBLEU float64 `json:"avg_bleu_score"`
	// AvgRougeL is the mean ROUGE-L score.
	AvgRougeL float64 `json:"avg_rouge_score"`
	// AvgCosineSimilarity is the mean cosine similarity.
	AvgCosineSimilarity float64 `json:"avg_cosine_similarity"`
}

// AggregateSets averages per-row metric sets. An empty input yields the
// zero Aggregate.
func AggregateSets(sets []MetricSet) Aggregate {
	agg := Aggregate{TotalEntries: len(sets)}
	if len(sets) == 0 {
		return agg
	}

	var sumF1, sumBLEU, sumRouge, sumCosine float64
	for _, set := range sets {
		agg.ExactMatchCount += set.ExactMatch
		sumF1 += set.TokenF1
		sumBLEU += set.BLEU
		sumRouge += set.RougeL
		sumCosine += set.CosineSimilarity
	}

	n := float64(len(sets))
	agg.Accuracy = float64(agg.ExactMatchCount) / n
	agg.AvgTokenF1 = sumF1 / n
	agg.AvgBLEU = sumBLEU / n
	agg.AvgRougeL = sumRouge / n
	agg.AvgCosineSimilarity = sumCosine / n
	return agg
}

// Winner identifies which model a comparison favored.
type Winner string

// Winner values.
const (
	WinnerA            Winner = "A"
	WinnerB            Winner = "B"
	WinnerTie          Winner = "Tie"
	WinnerUndetermined Winner = "Undetermined"
)

// tieConfidence is reported when both accuracies are equal.
const tieConfidence = 0.5

// DetermineWinner compares exact-match accuracies of model A and model B.
// The higher accuracy wins; equal accuracies tie. Confidence is
// min(|accuracyA - accuracyB|, 1), or 0.5 on a tie.
//
// Ties on exact match intentionally do not consult the finer-grained
// metrics; two different wrong answers therefore tie.
func DetermineWinner(accuracyA, accuracyB float64) (Winner, float64) {
	if accuracyA == accuracyB {
		return WinnerTie, tieConfidence
	}
	confidence := math.Min(math.Abs(accuracyA-accuracyB), 1.0)
	if accuracyA > accuracyB {
		return WinnerA, confidence
	}
	return WinnerB, confidence
}
