// Package resolve answers lookups: given an arbitrary string — a name, a
// symbol, or an address — it produces the single best-matching enriched token
// by racing cache, relational and on-chain probes under one deadline, and
// fans the result out to the cache, the caller's channel and the bus.
package resolve

import (
	"strings"
)

const (
	addressLengthMin = 32
	addressLengthMax = 44
	symbolLengthMax  = 10
)

// StringType is one interpretation of a lookup input.
type StringType int

const (
	TypeAddress StringType = iota
	TypeSymbol
	TypeName
)

// Confidence ranks how plausible an interpretation is.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

// Classification is the set of interpretations an input plausibly belongs
// to, each with a confidence.
type Classification struct {
	Matches map[StringType]Confidence
	Raw     string
}

// Classify inspects an input string and returns its plausible
// interpretations.
func Classify(input string) Classification {
	trimmed := strings.TrimSpace(input)
	n := len(trimmed)
	matches := make(map[StringType]Confidence)

	if n >= addressLengthMin && n <= addressLengthMax && isBase58(trimmed) {
		matches[TypeAddress] = ConfidenceHigh
	}

	if isAlphanumeric(trimmed) && n <= symbolLengthMax && n > 0 {
		if n <= 6 {
			matches[TypeSymbol] = ConfidenceHigh
		} else {
			matches[TypeSymbol] = ConfidenceMedium
		}
	}

	if n > 0 {
		switch {
		case hasNonAlphanumeric(trimmed):
			matches[TypeName] = ConfidenceHigh
		case n > symbolLengthMax:
			matches[TypeName] = ConfidenceMedium
		default:
			matches[TypeName] = ConfidenceLow
		}
	}

	return Classification{Matches: matches, Raw: trimmed}
}

// isBase58 reports whether every character is in the base58 alphabet
// (1-9, A-H, J-N, P-Z, a-k, m-z).
func isBase58(s string) bool {
	for _, c := range s {
		switch {
		case c >= '1' && c <= '9':
		case c >= 'A' && c <= 'H':
		case c >= 'J' && c <= 'N':
		case c >= 'P' && c <= 'Z':
		case c >= 'a' && c <= 'k':
		case c >= 'm' && c <= 'z':
		default:
			return false
		}
	}
	return true
}

func isAlphanumeric(s string) bool {
	for _, c := range s {
		if !isASCIIAlphanumeric(c) {
			return false
		}
	}
	return true
}

func hasNonAlphanumeric(s string) bool {
	for _, c := range s {
		if !isASCIIAlphanumeric(c) {
			return true
		}
	}
	return false
}

func isASCIIAlphanumeric(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
