// Package identity generates the device serial population for a collection run.
package identity

import "fmt"

// serialWidth is the zero-padded index width. The fleet size is in the
// hundreds, so three digits cover the whole population.
const serialWidth = 3

// Serials returns n unique device serials in ascending order. Each serial is
// the prefix followed by the zero-based index, left-padded with zeros to
// serialWidth digits. The result is deterministic for a given (n, prefix)
// and empty for n <= 0.
func Serials(n int, prefix string) []string {
	if n <= 0 {
		return nil
	}

	serials := make([]string, 0, n)
	for i := 0; i < n; i++ {
		serials = append(serials, fmt.Sprintf("%s%0*d", prefix, serialWidth, i))
	}
	return serials
}
