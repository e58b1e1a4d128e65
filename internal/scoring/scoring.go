// Package scoring rates domain names by rough desirability.
package scoring

import (
	"strings"
	"unicode"
)

// HeuristicScore maps a domain name to a 0-7 desirability score.
//
// The label before the first dot is lower-cased and awarded:
//
//	+3 if length <= 4
//	+2 if entirely numeric
//	+1 if entirely alphabetic using at most 2 distinct characters
//	+1 if it mixes at least one digit and one letter
//
// Bonuses are not mutually exclusive. The function is pure.
func HeuristicScore(domain string) int {
	name, _, _ := strings.Cut(domain, ".")
	name = strings.ToLower(name)

	score := 0
	if len(name) <= 4 {
		score += 3
	}
	if isDigits(name) {
		score += 2
	}
	if isLetters(name) && distinctRunes(name) <= 2 {
		score++
	}
	if containsDigit(name) && containsLetter(name) {
		score++
	}
	return score
}

// isDigits is true only for non-empty all-digit strings.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isLetters is true only for non-empty all-letter strings.
func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func distinctRunes(s string) int {
	seen := make(map[rune]struct{}, len(s))
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
