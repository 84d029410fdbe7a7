package utils

import "strings"

// ParseSymbols splits a comma-separated symbol list, trimming whitespace,
// upper-casing and dropping blanks and duplicates while keeping order.
// Returns nil for empty/whitespace-only input.
func ParseSymbols(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var result []string
	seen := make(map[string]bool)
	for _, v := range strings.Split(s, ",") {
		symbol := strings.ToUpper(strings.TrimSpace(v))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		result = append(result, symbol)
	}

	return result
}
