package utils

import (
	"strconv"
	"strings"
)

// ParseIntDefault parses a non-negative int, returning def on anything else.
func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v >= 0 {
		return v
	}
	return def
}

// ParseID parses a positive database id from a path segment; 0 means invalid.
func ParseID(s string) uint {
	return uint(ParseIntDefault(s, 0))
}
