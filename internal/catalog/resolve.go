package catalog

import "strings"

// Resolve finds the best canonical recording for the given provider track.
//
// Rules run in strict priority order and the first hit wins:
//
//  1. mbid: the input already carries one; trust it, confidence 1.0.
//  2. isrc: case-insensitive ISRC equality, confidence 0.98.
//  3. exact: case-insensitive title+artist equality, duration within
//     1500ms when both sides have one, confidence 0.92.
//  4. fuzzy: highest Jaccard similarity over whitespace tokens of
//     "title artist", accepted at or above the threshold; confidence is
//     the score itself.
//
// Returns nil when no rule produces a hit. Ties on the fuzzy score keep the
// first maximal candidate in catalog order.
func Resolve(in Input, candidates []Candidate) *Match {
	if in.MBID != "" {
		return &Match{MBID: in.MBID, Confidence: 1.0, Rule: RuleMBID}
	}

	if in.ISRC != "" {
		for i := range candidates {
			c := &candidates[i]
			if c.ISRC != "" && strings.EqualFold(c.ISRC, in.ISRC) {
				return &Match{MBID: c.MBID, Confidence: 0.98, Rule: RuleISRC, Candidate: c}
			}
		}
	}

	for i := range candidates {
		c := &candidates[i]
		if !strings.EqualFold(c.Title, in.Title) || !strings.EqualFold(c.Artist, in.Artist) {
			continue
		}
		if in.DurationMS > 0 && c.DurationMS > 0 {
			diff := in.DurationMS - c.DurationMS
			if diff < 0 {
				diff = -diff
			}
			if diff >= exactDurationWindowMS {
				continue
			}
		}
		return &Match{MBID: c.MBID, Confidence: 0.92, Rule: RuleExact, Candidate: c}
	}

	threshold := in.FuzzyThreshold
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}

	inputTokens := tokenize(in.Title + " " + in.Artist)
	var best *Candidate
	bestScore := 0.0
	for i := range candidates {
		c := &candidates[i]
		score := jaccard(inputTokens, tokenize(c.Title+" "+c.Artist))
		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	if best != nil && bestScore >= threshold {
		return &Match{MBID: best.MBID, Confidence: bestScore, Rule: RuleFuzzy, Candidate: best}
	}

	return nil
}

// tokenize splits a string into a case-folded whitespace-token set.
func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(s)) {
		tokens[field] = struct{}{}
	}
	return tokens
}

// jaccard returns intersection size over union size for two token sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
