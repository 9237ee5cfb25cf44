package similarity

// Scoring policy constants. These mirror longstanding production values and
// are deliberately not configurable per platform.
const (
	// KeywordWeight and RangeWeight blend the two partial scores when both
	// keyword tokens and range keys are present.
	KeywordWeight = 0.6
	RangeWeight   = 0.4

	// DefaultThreshold is the minimum similarity for a match.
	DefaultThreshold = 0.7

	// DefaultCandidateLimit caps how many recent completed runs are scored.
	DefaultCandidateLimit = 50
)

// Jaccard returns |A∩B| / |A∪B|, and 0.0 when both sets are empty
func Jaccard(a, b TokenSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}
	inter := 0
	for token := range a {
		if _, ok := b[token]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}

// RangeOverlap returns the overlapping length of two intervals divided by
// their total span. Any nil bound scores 0.0. A zero span scores 1.0 only
// when both ranges collapse to the same single point.
func RangeOverlap(a, b Range) float64 {
	if a.Min == nil || a.Max == nil || b.Min == nil || b.Max == nil {
		return 0.0
	}

	overlap := minF(*a.Max, *b.Max) - maxF(*a.Min, *b.Min)
	if overlap < 0 {
		overlap = 0
	}

	span := maxF(*a.Max, *b.Max) - minF(*a.Min, *b.Min)
	if span <= 0 {
		if *a.Min == *b.Min && *a.Max == *b.Max && *a.Min == *a.Max {
			return 1.0
		}
		return 0.0
	}

	return overlap / span
}

// Compute scores two filter documents of the same platform. Keyword overlap
// and averaged range overlap are blended 60/40; when only one kind of signal
// exists it carries the full weight, and two empty documents score 0.0.
func Compute(filtersA, filtersB map[string]any, platform string) float64 {
	tokensA := Tokenize(filtersA, platform)
	tokensB := Tokenize(filtersB, platform)
	keywordSim := Jaccard(tokensA, tokensB)

	rangesA := ExtractRanges(filtersA, platform)
	rangesB := ExtractRanges(filtersB, platform)

	rangeKeys := map[string]struct{}{}
	for key := range rangesA {
		rangeKeys[key] = struct{}{}
	}
	for key := range rangesB {
		rangeKeys[key] = struct{}{}
	}

	rangeSim := 0.0
	if len(rangeKeys) > 0 {
		total := 0.0
		for key := range rangeKeys {
			// a side missing the key scores 0.0 for it
			total += RangeOverlap(rangesA[key], rangesB[key])
		}
		rangeSim = total / float64(len(rangeKeys))
	}

	hasKeywords := len(tokensA) > 0 || len(tokensB) > 0
	hasRanges := len(rangeKeys) > 0

	switch {
	case hasKeywords && hasRanges:
		return KeywordWeight*keywordSim + RangeWeight*rangeSim
	case hasKeywords:
		return keywordSim
	case hasRanges:
		return rangeSim
	default:
		return 0.0
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
