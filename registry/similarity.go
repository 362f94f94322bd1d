package registry

import (
	"math"
	"regexp"
	"strings"

	"github.com/praxis-ai/praxis/model"
)

var termSplit = regexp.MustCompile(`[^a-z0-9]+`)

// Terms lowercases and tokenizes free text into the bag of terms used by the
// similarity scorer and the tag index candidate generation.
func Terms(text string) []string {
	parts := termSplit.Split(strings.ToLower(text), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) > 1 {
			out = append(out, p)
		}
	}
	return out
}

func metadataTerms(meta model.WorkflowMetadata) []string {
	terms := Terms(meta.Description)
	terms = append(terms, Terms(meta.Domain)...)
	for _, tag := range meta.Tags {
		terms = append(terms, Terms(tag)...)
	}
	return terms
}

// CosineSimilarity scores a description against a term bag using term
// frequency vectors. The scoring function is deliberately simple, the
// registry's Scorer field swaps in anything smarter.
func CosineSimilarity(description string, terms []string) float64 {
	a := termVector(Terms(description))
	b := termVector(terms)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for term, fa := range a {
		normA += fa * fa
		if fb, ok := b[term]; ok {
			dot += fa * fb
		}
	}
	for _, fb := range b {
		normB += fb * fb
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func termVector(terms []string) map[string]float64 {
	vec := make(map[string]float64, len(terms))
	for _, t := range terms {
		vec[t]++
	}
	return vec
}
