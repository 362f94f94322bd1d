package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeProblem(t *testing.T) {
	require.Equal(t, "solve 2+2", NormalizeProblem("  Solve   2+2 "))
	require.Equal(t, "", NormalizeProblem("   "))
}

func TestProblemHash(t *testing.T) {
	require.Equal(t, ProblemHash("Solve 2+2"), ProblemHash("solve   2+2"))
	require.NotEqual(t, ProblemHash("solve 2+2"), ProblemHash("solve 2+3"))
}
