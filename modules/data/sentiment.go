package data

import "strings"

// maxSentimentBatch caps one request's batch so a single call cannot burn an
// entire quota by accident.
const maxSentimentBatch = 100

// SentimentLabel classifies one scored text.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// SentimentResult is the score for one input text.
type SentimentResult struct {
	Text  string         `json:"text"`
	Label SentimentLabel `json:"label"`
	Score float64        `json:"score"`
}

// Lexicon word weights. Coarse on purpose; good enough for trend direction,
// not for per-comment judgments.
var sentimentLexicon = map[string]float64{
	"good": 1, "great": 2, "awesome": 2, "amazing": 2, "excellent": 2,
	"love": 2, "like": 1, "best": 2, "nice": 1, "happy": 1, "win": 1,
	"useful": 1, "helpful": 1, "fast": 1, "solid": 1, "recommend": 2,

	"bad": -1, "terrible": -2, "awful": -2, "horrible": -2, "worst": -2,
	"hate": -2, "broken": -1, "slow": -1, "bug": -1, "buggy": -2,
	"useless": -2, "scam": -2, "fail": -1, "crash": -2, "wrong": -1,
}

// negations flip the weight of the word that follows them.
var negations = map[string]bool{
	"not": true, "no": true, "never": true, "dont": true, "don't": true,
	"isnt": true, "isn't": true, "wasnt": true, "wasn't": true,
}

// ScoreSentiment runs the lexicon scorer over one text. The score is the
// summed word weight normalized by token count, clamped to [-1, 1].
func ScoreSentiment(text string) SentimentResult {
	tokens := strings.Fields(strings.ToLower(text))

	var sum float64
	negate := false
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,!?;:\"'()[]")
		if negations[tok] {
			negate = true
			continue
		}
		if w, ok := sentimentLexicon[tok]; ok {
			if negate {
				w = -w
			}
			sum += w
		}
		negate = false
	}

	score := 0.0
	if len(tokens) > 0 {
		score = sum / float64(len(tokens))
	}
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}

	label := SentimentNeutral
	switch {
	case score > 0:
		label = SentimentPositive
	case score < 0:
		label = SentimentNegative
	}

	return SentimentResult{Text: text, Label: label, Score: score}
}
