package scoring

import "quizforge/internal/model"

// Statistics aggregates a set of results, typically all results for one quiz
// or one user.
type Statistics struct {
	Count             int            `json:"count"`
	AverageScore      float64        `json:"averageScore"`
	BestScore         int            `json:"bestScore"`
	WorstScore        int            `json:"worstScore"`
	GradeDistribution map[string]int `json:"gradeDistribution"`
	// Trend is last score minus first score in submission order, zero when
	// fewer than two results exist.
	Trend int `json:"trend"`
}

// ComputeStatistics summarizes results in the order given. Callers that want
// the trend to mean anything should pass results ordered by completion time.
func ComputeStatistics(results []model.Result) Statistics {
	stats := Statistics{GradeDistribution: make(map[string]int)}
	if len(results) == 0 {
		return stats
	}

	stats.Count = len(results)
	stats.BestScore = results[0].Score
	stats.WorstScore = results[0].Score
	sum := 0
	for _, r := range results {
		sum += r.Score
		if r.Score > stats.BestScore {
			stats.BestScore = r.Score
		}
		if r.Score < stats.WorstScore {
			stats.WorstScore = r.Score
		}
		stats.GradeDistribution[r.Grade]++
	}
	stats.AverageScore = float64(sum) / float64(len(results))

	if len(results) >= 2 {
		stats.Trend = results[len(results)-1].Score - results[0].Score
	}
	return stats
}
