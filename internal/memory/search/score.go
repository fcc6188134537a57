package search

// Confidence bands reported by the index provider. Anything else falls back
// to rank-only decay.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

type band struct {
	top    float64
	bottom float64
}

// ScoreConfig maps provider confidence labels onto a 0-100 scale. A clip
// scores at the top of its band minus a small per-rank penalty, never
// dropping below the band floor, so a high-confidence clip always outscores
// a medium one regardless of rank.
type ScoreConfig struct {
	Bands       map[string]band
	RankPenalty float64
	RankDecay   float64
}

func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		Bands: map[string]band{
			ConfidenceHigh:   {top: 100, bottom: 85},
			ConfidenceMedium: {top: 84, bottom: 60},
			ConfidenceLow:    {top: 59, bottom: 30},
		},
		RankPenalty: 3,
		RankDecay:   5,
	}
}

// clipScore converts one hit's confidence label and 1-based rank into a
// numeric score. Unknown labels degrade to rank-only decay.
func (c ScoreConfig) clipScore(confidence string, rank int) float64 {
	if rank < 1 {
		rank = 1
	}
	if b, ok := c.Bands[confidence]; ok {
		s := b.top - float64(rank-1)*c.RankPenalty
		if s < b.bottom {
			return b.bottom
		}
		return s
	}
	s := 100 - float64(rank-1)*c.RankDecay
	if s < 0 {
		return 0
	}
	return s
}
