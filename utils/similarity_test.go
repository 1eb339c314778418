package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareNames(t *testing.T) {
	assert.True(t, CompareNames("John Doe", "John Doe"))
	assert.True(t, CompareNames("John Doe", "MR JOHN DOE"))
	assert.True(t, CompareNames("John Doe", "Doe John"))
	assert.True(t, CompareNames("J. Doe", "John Doe"))
	assert.True(t, CompareNames("John Smith", "John Smyth"))
	assert.False(t, CompareNames("John Doe", "Jane Doe"))
	assert.False(t, CompareNames("", "John Doe"))
	assert.False(t, CompareNames("Mr", "John Doe"))
}

func TestTextComparerSimilarity(t *testing.T) {
	c := NewTextComparer(0, 1<<30)
	a := "ACME LTD  Payslip\nEmployee: John Doe\nNet pay 2,000.00"
	b := "acme ltd payslip employee: john doe net pay 2,000.00"
	assert.Equal(t, 1.0, c.Similarity(a, b))

	d := "acme ltd payslip employee: john doe net pay 2,500.00"
	sim := c.Similarity(b, d)
	assert.Greater(t, sim, 0.9)
	assert.Less(t, sim, 1.0)

	assert.Equal(t, 0.0, c.Similarity("", b))
	assert.Equal(t, 0, c.Fallbacks())
}

func TestTextComparerFallsBackOnLength(t *testing.T) {
	a := strings.Repeat("salary paid ", 50)
	b := strings.Repeat("salary paid ", 49) + "bonus paid"
	c := NewTextComparer(20, 1<<30)
	assert.Equal(t, TokenOverlap(NormalizeText(a), NormalizeText(b)), c.Similarity(a, b))
	assert.Equal(t, 1, c.Fallbacks())
}

func TestTextComparerBudget(t *testing.T) {
	a := "acme ltd payslip january"
	b := "acme ltd payslip february"
	cost := int64(len(a) * len(b))

	// room for exactly one edit-distance comparison
	c := NewTextComparer(0, cost)
	first := c.Similarity(a, b)
	assert.Equal(t, 0, c.Fallbacks())
	second := c.Similarity(a, b)
	assert.Equal(t, 1, c.Fallbacks())

	assert.InDelta(t, 1-4.0/25, first, 1e-9)
	assert.Equal(t, TokenOverlap(a, b), second)
}

func TestTokenOverlap(t *testing.T) {
	assert.Equal(t, 1.0, TokenOverlap("a b c", "c b a"))
	assert.Equal(t, 0.5, TokenOverlap("a b", "a c"))
	assert.Equal(t, 0.0, TokenOverlap("", "a"))
}
