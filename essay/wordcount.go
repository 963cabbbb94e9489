// Package essay holds the small pieces of essay bookkeeping shared by the
// server and the writing client: word counting and the writing stopwatch.
package essay

import "strings"

// Count returns the number of non-empty whitespace separated tokens.
func Count(text string) int {
	return len(strings.Fields(text))
}
