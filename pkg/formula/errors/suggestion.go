package errors

import (
	"fmt"
	"strings"
)

// SuggestColumnName suggests a column when an unknown one is referenced.
// It uses Levenshtein distance to find the closest known key.
func SuggestColumnName(unknown string, validColumns []string) string {
	if len(validColumns) == 0 {
		return ""
	}

	best, dist := closest(unknown, validColumns)
	if dist < 3 {
		return fmt.Sprintf("did you mean '%s'?", best)
	}

	if len(validColumns) > 5 {
		return fmt.Sprintf("valid columns include: %s, ...", strings.Join(validColumns[:5], ", "))
	}
	return fmt.Sprintf("valid columns: %s", strings.Join(validColumns, ", "))
}

// SuggestFunctionName suggests a registered function when an unknown one is called.
func SuggestFunctionName(unknown string, validFunctions []string) string {
	if len(validFunctions) == 0 {
		return ""
	}

	best, dist := closest(strings.ToUpper(unknown), validFunctions)
	if dist < 3 {
		return fmt.Sprintf("did you mean '%s'?", best)
	}
	return ""
}

func closest(unknown string, candidates []string) (string, int) {
	minDistance := 1000
	var bestMatch string
	for _, c := range candidates {
		d := levenshteinDistance(strings.ToLower(unknown), strings.ToLower(c))
		if d < minDistance {
			minDistance = d
			bestMatch = c
		}
	}
	return bestMatch, minDistance
}

// levenshteinDistance computes the Levenshtein distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	r1, r2 := []rune(s1), []rune(s2)
	len1, len2 := len(r1), len(r2)

	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
	}
	for i := 0; i <= len1; i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len1][len2]
}
