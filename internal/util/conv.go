package util

import (
	"fmt"
	"math"
	"strconv"
)

// ParseID parses a positive path identifier.
func ParseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

// CorrectCount derives the number of correct answers from a percentage score.
func CorrectCount(score float64, total int) int {
	if total <= 0 || score <= 0 {
		return 0
	}
	n := int(math.Round(score / 100 * float64(total)))
	if n > total {
		return total
	}
	return n
}
