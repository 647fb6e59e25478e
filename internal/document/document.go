// Package document validates the check digits of Brazilian CPF and CNPJ
// taxpayer identifiers using the standard mod-11 weighted-sum algorithm.
//
// No example repository in the retrieval pack implements this algorithm, so
// unlike most of this module it is not grounded on a third-party library —
// it is a small, self-contained piece of arithmetic the Brazilian central
// bank's own PIX documentation mandates, and every reimplementation of this
// pipeline needs its own copy.
package document

import "strings"

var cpfWeights1 = []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
var cpfWeights2 = []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}

var cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
var cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

// ValidCPF reports whether value, after stripping non-digit formatting,
// is an 11-digit CPF with correct check digits.
func ValidCPF(value string) bool {
	digits := onlyDigits(value)
	if len(digits) != 11 || allSameDigit(digits) {
		return false
	}
	d1 := checkDigit(digits[:9], cpfWeights1)
	d2 := checkDigit(digits[:9]+string(d1), cpfWeights2)
	return digits[9] == d1 && digits[10] == d2
}

// ValidCNPJ reports whether value, after stripping non-digit formatting,
// is a 14-digit CNPJ with correct check digits.
func ValidCNPJ(value string) bool {
	digits := onlyDigits(value)
	if len(digits) != 14 || allSameDigit(digits) {
		return false
	}
	d1 := checkDigit(digits[:12], cnpjWeights1)
	d2 := checkDigit(digits[:12]+string(d1), cnpjWeights2)
	return digits[12] == d1 && digits[13] == d2
}

// checkDigit computes one mod-11 check digit over digits weighted by weights
// (both must be the same length); remainder < 2 maps to '0'.
func checkDigit(digits string, weights []int) byte {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	rem := sum % 11
	if rem < 2 {
		return '0'
	}
	return byte('0' + (11 - rem))
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSameDigit(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}
