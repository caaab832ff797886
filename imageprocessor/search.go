package imageprocessor

import (
	"sort"

	"imagefingerprint/logging"
	"imagefingerprint/types"
)

// SearchOptions defines the options for image searching
type SearchOptions struct {
	Threshold    float64
	SourcePrefix string
	Limit        int
	Weights      Weights
	DebugMode    bool
}

// DefaultSearchOptions returns a 0.85 threshold, no limit and the default weights
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Threshold: 0.85,
		Weights:   DefaultWeights(),
	}
}

// FindSimilarImages scores every candidate against query and returns those at
// or above the threshold, best first. A candidate stored under the query's own
// path is skipped.
func FindSimilarImages(query types.ImageFingerprint, candidates []types.ImageMatch, options SearchOptions) []types.ImageMatch {
	if options.DebugMode {
		logging.DebugLog("Starting image search for: %s", query.Path)
		logging.DebugLog("Threshold: %.2f, Source Prefix: %s", options.Threshold, options.SourcePrefix)
	}

	weights := options.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}

	var matches []types.ImageMatch
	for _, c := range candidates {
		if options.SourcePrefix != "" && c.SourcePrefix != options.SourcePrefix {
			continue
		}
		if c.Fingerprint.Path == query.Path && query.Path != "" {
			continue
		}

		score := SimilarityWithWeights(query, c.Fingerprint, weights)
		if options.DebugMode {
			logging.DebugLog("Candidate %s scored %.4f", c.Path, score)
		}
		if score < options.Threshold {
			continue
		}

		c.Score = score
		matches = append(matches, c)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if options.Limit > 0 && len(matches) > options.Limit {
		matches = matches[:options.Limit]
	}
	return matches
}
