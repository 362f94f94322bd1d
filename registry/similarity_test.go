package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTerms(t *testing.T) {
	terms := Terms("Triage the NEW incident, by severity!")
	require.Equal(t, []string{"triage", "the", "new", "incident", "by", "severity"}, terms)
}

func TestCosineSimilarity(t *testing.T) {
	identical := CosineSimilarity("triage incident", []string{"triage", "incident"})
	require.InDelta(t, 1.0, identical, 0.0001)

	disjoint := CosineSimilarity("triage incident", []string{"sales", "report"})
	require.Zero(t, disjoint)

	partial := CosineSimilarity("triage incident", []string{"incident", "report"})
	require.Greater(t, partial, 0.0)
	require.Less(t, partial, 1.0)

	require.Zero(t, CosineSimilarity("", []string{"incident"}))
}
