// package catalog reconciles heterogeneous provider track metadata against a
// canonical MusicBrainz-keyed catalog.
//
// Matching is a pure function: no I/O, no side effects, deterministic given
// its inputs. Candidate fetching is the caller's responsibility.
package catalog

// Rule identifies which cascade rule produced a match.
type Rule string

const (
	RuleMBID  Rule = "mbid"
	RuleISRC  Rule = "isrc"
	RuleExact Rule = "exact"
	RuleFuzzy Rule = "fuzzy"
)

// DefaultFuzzyThreshold is the minimum Jaccard similarity accepted by the
// fuzzy rule when the input does not configure one.
const DefaultFuzzyThreshold = 0.6

// exactDurationWindowMS bounds the duration difference the exact rule
// tolerates when both sides provide one.
const exactDurationWindowMS = 1500

// Candidate is one canonical recording in the local catalog used as a match target.
//
// DurationMS of 0 means the catalog does not know the duration.
type Candidate struct {
	MBID       string `json:"mbid"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMS int    `json:"duration_ms,omitempty"`
	ISRC       string `json:"isrc,omitempty"`
}

// Input bundles an external provider's raw track fields for resolution.
//
// DurationMS of 0 means the provider did not report a duration. A zero
// FuzzyThreshold falls back to [DefaultFuzzyThreshold].
type Input struct {
	Title          string
	Artist         string
	DurationMS     int
	ISRC           string
	MBID           string
	FuzzyThreshold float64
}

// Match carries the winning recording id, a confidence in [0,1], the rule
// that produced the hit, and the candidate consulted (nil for the mbid rule,
// which trusts the input outright).
type Match struct {
	MBID       string     `json:"mbid"`
	Confidence float64    `json:"confidence"`
	Rule       Rule       `json:"rule"`
	Candidate  *Candidate `json:"candidate,omitempty"`
}
