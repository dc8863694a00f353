// Package checksum validates the check digits of New Zealand tax
// identifiers: the 13-digit NZBN (GS1 mod-10) and the GST registration
// number (mod-11 with a two-weight-set fallback).
//
// Both validators are pure functions: no state, no I/O, same answer for
// the same input every time.
package checksum

import "strings"

// nzbnWeights are the GS1 weights applied positionally to the 12 body
// digits of an NZBN.
var nzbnWeights = [12]int{1, 3, 1, 3, 1, 3, 1, 3, 1, 3, 1, 3}

// GST weight sets. Set B is consulted only when set A yields a calculated
// check digit of exactly 10; this conditional structure is part of the
// documented algorithm, not an optimization, so it is preserved as-is.
var (
	gstWeightsA = [8]int{3, 2, 7, 6, 5, 4, 3, 2}
	gstWeightsB = [8]int{7, 4, 3, 2, 5, 2, 7, 6}
)

// IsValidNZBN reports whether nzbn is a well-formed NZBN with a correct
// GS1 mod-10 check digit. Anything that is not exactly 13 decimal digits
// is invalid.
func IsValidNZBN(nzbn string) bool {
	if len(nzbn) != 13 || !allDigits(nzbn) {
		return false
	}

	sum := 0
	for i := 0; i < 12; i++ {
		sum += digit(nzbn[i]) * nzbnWeights[i]
	}

	// Distance to the next multiple of 10; a sum already on a multiple of
	// 10 yields 0, not 10.
	calculated := (10 - sum%10) % 10

	return calculated == digit(nzbn[12])
}

// IsValidGST reports whether gst is a valid GST registration number. All
// non-digit characters are stripped first; the number is an 8-digit body
// (left-padded with a zero when only 7 digits remain) plus one mod-11
// check digit.
func IsValidGST(gst string) bool {
	digits := stripNonDigits(gst)
	if len(digits) < 2 {
		return false
	}

	check := digit(digits[len(digits)-1])
	body := digits[:len(digits)-1]
	if len(body) == 7 {
		body = "0" + body
	}
	if len(body) != 8 {
		return false
	}

	calculated := gstCheckDigit(body, gstWeightsA)
	if calculated == 10 {
		calculated = gstCheckDigit(body, gstWeightsB)
		if calculated == 10 {
			// No valid check digit exists for this body.
			return false
		}
	}

	return calculated == check
}

// gstCheckDigit computes the mod-11 check digit of an 8-digit body under
// the given weight set. May return 10, which callers must resolve.
func gstCheckDigit(body string, weights [8]int) int {
	sum := 0
	for i := 0; i < 8; i++ {
		sum += digit(body[i]) * weights[i]
	}

	remainder := sum % 11
	if remainder == 0 {
		return 0
	}
	return 11 - remainder
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func digit(c byte) int {
	return int(c - '0')
}
