package agent

import (
	"strings"

	"github.com/spaolacci/murmur3"
)

// NormalizeProblem folds case and whitespace so that trivial restatements of
// the same problem hash identically.
func NormalizeProblem(problem string) string {
	fields := strings.Fields(strings.ToLower(problem))
	return strings.Join(fields, " ")
}

func ProblemHash(problem string) uint64 {
	return murmur3.Sum64([]byte(NormalizeProblem(problem)))
}
