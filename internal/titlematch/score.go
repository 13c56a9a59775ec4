package titlematch

// Weights configures the similarity blend.
type Weights struct {
	Phrase float64 `json:"phrase"`
	Words  float64 `json:"words"`
	Length float64 `json:"length"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

var (
	// MovieWeights are tuned for short film titles; word overlap dominates.
	MovieWeights = Weights{Phrase: 0.6, Words: 1.2, Length: -0.2, Min: 8, Max: 1.5}
	// TextWeights are the general-purpose tuple.
	TextWeights = Weights{Phrase: 0.5, Words: 1.0, Length: -0.3, Min: 10, Max: 1}
)

// Weight preset names accepted by WeightPreset.
const (
	PresetMovie = "movie"
	PresetText  = "text"
)

// WeightPreset returns the named weight tuple. Names are case sensitive.
func WeightPreset(name string) (Weights, bool) {
	switch name {
	case PresetMovie:
		return MovieWeights, true
	case PresetText:
		return TextWeights, true
	}
	return Weights{}, false
}

// Score compares two already-normalized strings. Lower is more similar and
// identical strings score 0.
func Score(a, b string, w Weights) float64 {
	phrase := w.Phrase * float64(EditDistance(a, b))
	words := w.Words * float64(WordDistance(a, b))
	return min(phrase, words)*w.Min + max(phrase, words)*w.Max + w.Length*float64(LengthDelta(a, b))
}
