// Package patterns holds the compiled text heuristics used by the fraud detectors:
// suspicious raw-text regexes, employer legitimacy rules and NI number rules.
package patterns

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	// letters, then digits, then letters again inside one token, e.g. "PAYl0O0k"
	mixedAlphanumericRe = regexp.MustCompile(`\b[A-Za-z]+[0-9]+[A-Za-z]+[A-Za-z0-9]*\b`)
	whitespaceRunRe     = regexp.MustCompile(`[ \t\x{00A0}]{3,}`)
	niFormatRe          = regexp.MustCompile(`^[A-Z]{2}[0-9]{6}[A-Z]$`)

	artifactRes = []*regexp.Regexp{
		regexp.MustCompile(`\|{3,}`),
		regexp.MustCompile(`#{3,}`),
		regexp.MustCompile(`\x{FFFD}`),
		regexp.MustCompile(`\d[Oo]\d`),
		regexp.MustCompile(`\d[Il]\d`),
	}

	// HMRC never issues these prefixes.
	disallowedNIPrefixes = map[string]bool{
		"BG": true, "GB": true, "NK": true, "KN": true, "TN": true, "NT": true, "ZZ": true,
	}
)

type Options struct {
	EmployerSuffixes  []string
	EmployerBlacklist []string
	NIFakePatterns    []string
	NIStrictPrefixes  bool
}

// Library is immutable after New and safe for concurrent use.
type Library struct {
	suffixes     map[string]bool
	blacklist    map[string]bool
	fakePatterns []*regexp.Regexp
	strictNI     bool
}

func New(opts Options) (*Library, error) {
	lib := &Library{
		suffixes:  tokenSet(opts.EmployerSuffixes),
		blacklist: tokenSet(opts.EmployerBlacklist),
		strictNI:  opts.NIStrictPrefixes,
	}
	for _, p := range opts.NIFakePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile NI fake pattern %q: %w", p, err)
		}
		lib.fakePatterns = append(lib.fakePatterns, re)
	}
	return lib, nil
}

// MustNew is like New but panics on an invalid fake pattern.
func MustNew(opts Options) *Library {
	lib, err := New(opts)
	if err != nil {
		panic(err)
	}
	return lib
}

func tokenSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		for _, tok := range tokens(w) {
			set[tok] = true
		}
	}
	return set
}

// tokens splits on anything that is not a letter or digit and lowercases the pieces.
func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// MixedAlphanumericTokens returns tokens where letters sit on both sides of a digit run.
// Well-formed NI numbers are excluded since they legitimately look like this.
func (l *Library) MixedAlphanumericTokens(text string) []string {
	var out []string
	for _, tok := range mixedAlphanumericRe.FindAllString(text, -1) {
		if niFormatRe.MatchString(strings.ToUpper(tok)) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// WhitespaceRuns counts runs of three or more horizontal whitespace characters.
func (l *Library) WhitespaceRuns(text string) int {
	return len(whitespaceRunRe.FindAllStringIndex(text, -1))
}

// ArtifactTokens returns every known OCR corruption token found in text.
func (l *Library) ArtifactTokens(text string) []string {
	var out []string
	for _, re := range artifactRes {
		out = append(out, re.FindAllString(text, -1)...)
	}
	return out
}

// typographic punctuation that word processors and PDF renderers emit on genuine documents
var typographic = map[rune]bool{
	'\u00A0': true, '\u00B7': true, '\u00B0': true,
	'\u2018': true, '\u2019': true, '\u201C': true, '\u201D': true,
	'\u2013': true, '\u2014': true, '\u2022': true, '\u2026': true,
}

// SuspiciousRunes returns, in first-seen order, the distinct non-ASCII characters in text that
// are neither Latin letters and accents, currency symbols nor common typographic punctuation:
// homoglyphs from other scripts, zero-width characters and fullwidth forms. U+FFFD is left to
// ArtifactTokens.
func (l *Library) SuspiciousRunes(text string) []string {
	var out []string
	seen := make(map[rune]bool)
	for _, r := range text {
		if r < 0x80 || seen[r] || r == unicode.ReplacementChar || typographic[r] {
			continue
		}
		if r <= 0x024F && (unicode.IsLetter(r) || unicode.Is(unicode.Mn, r)) {
			continue
		}
		if unicode.Is(unicode.Sc, r) {
			continue
		}
		seen[r] = true
		out = append(out, fmt.Sprintf("%U", r))
	}
	return out
}

type EmployerCheck struct {
	HasLegalSuffix bool
	MultiWord      bool
	Blacklisted    []string
}

// Failures counts how many of the three legitimacy checks failed.
func (c EmployerCheck) Failures() int {
	n := 0
	if !c.HasLegalSuffix {
		n++
	}
	if !c.MultiWord {
		n++
	}
	if len(c.Blacklisted) > 0 {
		n++
	}
	return n
}

// CheckEmployer evaluates name against the suffix, word-count and blacklist rules.
// Blacklist terms match whole words only.
func (l *Library) CheckEmployer(name string) EmployerCheck {
	toks := tokens(name)
	check := EmployerCheck{MultiWord: len(toks) > 1}
	for i, tok := range toks {
		if l.suffixes[tok] && i > 0 {
			check.HasLegalSuffix = true
		}
		if l.blacklist[tok] {
			check.Blacklisted = append(check.Blacklisted, tok)
		}
	}
	return check
}

type NIStatus int

const (
	NIValid NIStatus = iota
	NIBadFormat
	NIDisallowedPrefix
	NIKnownFake
)

func (s NIStatus) String() string {
	switch s {
	case NIValid:
		return "valid"
	case NIBadFormat:
		return "bad format"
	case NIDisallowedPrefix:
		return "disallowed prefix"
	case NIKnownFake:
		return "known fake"
	}
	return "unknown"
}

type NICheck struct {
	Normalized string
	Status     NIStatus
	Detail     string
}

// CheckNINumber validates an NI number. Spaces are ignored and case is folded.
// Format is checked first, then the fake list, then HMRC prefix rules.
func (l *Library) CheckNINumber(ni string) NICheck {
	n := strings.ToUpper(strings.Join(strings.Fields(ni), ""))
	res := NICheck{Normalized: n}

	if !niFormatRe.MatchString(n) {
		res.Status = NIBadFormat
		res.Detail = "expected two letters, six digits and one letter"
		return res
	}
	for _, re := range l.fakePatterns {
		if re.MatchString(n) {
			res.Status = NIKnownFake
			res.Detail = "matches known placeholder pattern " + re.String()
			return res
		}
	}
	if l.strictNI {
		if detail := prefixProblem(n); detail != "" {
			res.Status = NIDisallowedPrefix
			res.Detail = detail
			return res
		}
	}
	return res
}

func prefixProblem(n string) string {
	first, second, suffix := n[0], n[1], n[8]
	if strings.IndexByte("DFIQUV", first) >= 0 {
		return fmt.Sprintf("first letter %c is never issued", first)
	}
	if strings.IndexByte("DFIQUVO", second) >= 0 {
		return fmt.Sprintf("second letter %c is never issued", second)
	}
	if disallowedNIPrefixes[n[:2]] {
		return fmt.Sprintf("prefix %s is never issued", n[:2])
	}
	if suffix < 'A' || suffix > 'D' {
		return fmt.Sprintf("suffix %c is not A-D", suffix)
	}
	return ""
}
