package imageprocessor

import (
	"fmt"

	apperrors "imagefingerprint/errors"
	"imagefingerprint/types"
)

// Weights are the per-channel contributions to the overall score. The
// defaults are tunable and carry no derivation.
type Weights struct {
	Color     float64
	Structure float64
	Edge      float64
	Content   float64
}

// DefaultWeights returns color 0.4, structure 0.3, edge 0.2, content 0.1
func DefaultWeights() Weights {
	return Weights{Color: 0.4, Structure: 0.3, Edge: 0.2, Content: 0.1}
}

// Validate rejects negative weights and an all-zero set
func (w Weights) Validate() error {
	if w.Color < 0 || w.Structure < 0 || w.Edge < 0 || w.Content < 0 {
		return fmt.Errorf("%w: weights must not be negative", apperrors.ErrInvalidOptions)
	}
	if w.Color+w.Structure+w.Edge+w.Content == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", apperrors.ErrInvalidOptions)
	}
	return nil
}

// ChannelScore is the outcome of comparing one channel
type ChannelScore struct {
	Channel    string
	Similarity float64
	Weight     float64
	Included   bool
}

// SimilarityReport is a per-channel breakdown of a comparison
type SimilarityReport struct {
	Channels []ChannelScore
	Score    float64
}

// HammingDistance counts differing positions between two bit strings. Strings
// of unequal length are maximally distant: the longer length is returned.
func HammingDistance(a, b string) int {
	if len(a) != len(b) {
		if len(a) > len(b) {
			return len(a)
		}
		return len(b)
	}

	distance := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			distance++
		}
	}
	return distance
}

// ChannelSimilarity returns 1 - distance/length for two bit strings
func ChannelSimilarity(a, b string) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	return 1 - float64(HammingDistance(a, b))/float64(n)
}

// Similarity scores two fingerprints with the default weights
func Similarity(a, b types.ImageFingerprint) float64 {
	return SimilarityWithWeights(a, b, DefaultWeights())
}

// SimilarityWithWeights scores two fingerprints in [0,1]
func SimilarityWithWeights(a, b types.ImageFingerprint, w Weights) float64 {
	return Compare(a.Hashes, b.Hashes, w).Score
}

// Compare scores two hash sets channel by channel. A channel missing on
// either side is left out of both the sum and the weight total; with no
// usable channel the score is 0.
func Compare(a, b types.Hashes, w Weights) SimilarityReport {
	channels := []ChannelScore{
		bitChannel(ChannelColor, a.Color, b.Color, w.Color),
		bitChannel(ChannelStructure, a.Structure, b.Structure, w.Structure),
		bitChannel(ChannelEdge, a.Edge, b.Edge, w.Edge),
		contentChannel(a.Content, b.Content, w.Content),
	}

	var total, weights float64
	for _, c := range channels {
		if !c.Included {
			continue
		}
		total += c.Similarity * c.Weight
		weights += c.Weight
	}

	report := SimilarityReport{Channels: channels}
	if weights > 0 {
		report.Score = clamp01(total / weights)
	}
	return report
}

func bitChannel(name, a, b string, weight float64) ChannelScore {
	if a == "" || b == "" {
		return ChannelScore{Channel: name, Weight: weight}
	}
	return ChannelScore{
		Channel:    name,
		Similarity: ChannelSimilarity(a, b),
		Weight:     weight,
		Included:   true,
	}
}

func contentChannel(a, b string, weight float64) ChannelScore {
	if a == "" || b == "" {
		return ChannelScore{Channel: ChannelContent, Weight: weight}
	}
	score := ChannelScore{Channel: ChannelContent, Weight: weight, Included: true}
	if a == b {
		score.Similarity = 1
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
