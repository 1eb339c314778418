package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var nameTitles = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "miss": true, "mx": true, "dr": true, "sir": true,
}

// NormalizeText lowercases s and collapses every whitespace run to a single space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// CompareNames reports whether two person names plausibly refer to the same person.
// Titles are ignored, word order is free, initials match full words and single OCR slips
// inside a word are tolerated.
func CompareNames(name1, name2 string) bool {
	words1 := nameWords(name1)
	words2 := nameWords(name2)
	if len(words1) == 0 || len(words2) == 0 {
		return false
	}
	if len(words1) > len(words2) {
		words1, words2 = words2, words1
	}

	used := make([]bool, len(words2))
	for _, w1 := range words1 {
		matched := false
		for j, w2 := range words2 {
			if !used[j] && wordsMatch(w1, w2) {
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// TextComparer scores raw-text similarity under a shared edit-distance budget. Edit distance
// costs the product of the two rune counts; a pair longer than maxEditChars, or one that would
// overrun the remaining budget, is scored by token overlap instead, which is linear.
// A TextComparer is not safe for concurrent use.
type TextComparer struct {
	maxEditChars int
	budget       int64
	fallbacks    int
}

// NewTextComparer returns a comparer allowed maxCells edit-distance cells in total.
// maxEditChars <= 0 removes the per-text length limit; the budget still applies.
func NewTextComparer(maxEditChars int, maxCells int64) *TextComparer {
	return &TextComparer{maxEditChars: maxEditChars, budget: maxCells}
}

// Similarity compares two raw texts after whitespace and case normalisation.
func (c *TextComparer) Similarity(a, b string) float64 {
	na, nb := NormalizeText(a), NormalizeText(b)
	if na == "" || nb == "" {
		return 0
	}
	la, lb := utf8.RuneCountInString(na), utf8.RuneCountInString(nb)
	cost := int64(la) * int64(lb)
	if (c.maxEditChars > 0 && max(la, lb) > c.maxEditChars) || cost > c.budget {
		c.fallbacks++
		return TokenOverlap(na, nb)
	}
	c.budget -= cost
	return editSimilarity(na, nb)
}

// Fallbacks is the number of pairs scored by token overlap.
func (c *TextComparer) Fallbacks() int {
	return c.fallbacks
}

// TokenOverlap is the Dice coefficient over the whitespace-separated token multisets.
func TokenOverlap(a, b string) float64 {
	ta, tb := strings.Fields(strings.ToLower(a)), strings.Fields(strings.ToLower(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	counts := make(map[string]int, len(ta))
	for _, t := range ta {
		counts[t]++
	}
	shared := 0
	for _, t := range tb {
		if counts[t] > 0 {
			counts[t]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ta)+len(tb))
}

func editSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

func nameWords(name string) []string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '-'
	})
	words := fields[:0]
	for _, f := range fields {
		if !nameTitles[f] {
			words = append(words, f)
		}
	}
	return words
}

func wordsMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) == 1 && strings.HasPrefix(b, a) || len(b) == 1 && strings.HasPrefix(a, b) {
		return true
	}
	if len(a) < 4 || len(b) < 4 {
		return false
	}
	return editSimilarity(a, b) >= 0.8
}
