// Package utils provides small generic helpers shared across packages.
package utils

import (
	"regexp"
)

var notSnake = regexp.MustCompile(`[_-]`)

// SnakeCase converts a string to snake_case by replacing hyphens and underscores
// with underscores.
func SnakeCase(s string) string {
	return notSnake.ReplaceAllString(s, "_")
}

// Map applies f to every element of l, passing the element index.
func Map[I, O any](l []I, f func(I, uint64) O) []O {
	out := make([]O, 0, len(l))
	for i, v := range l {
		out = append(out, f(v, uint64(i)))
	}
	return out
}
