// Package cpf validates and formats Brazilian individual taxpayer identifiers.
//
// A CPF is eleven digits where the last two are check digits computed with a
// mod-11 weighted sum over the preceding digits. Every function in this package
// is pure and safe for concurrent use. Invalid input never produces an error,
// only a false or empty result.
package cpf

import "strings"

const (
	Length     = 11
	BaseLength = 9
)

// Digits returns the digit characters of raw in their original order.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}

// IsValid reports whether raw holds a structurally valid CPF. Separators are
// ignored; only the digits are considered.
func IsValid(raw string) bool {
	digits := Digits(raw)
	if len(digits) != Length || allSame(digits) {
		return false
	}

	d := toInts(digits)
	return rest(d, 10) == d[9] && rest(d, 11) == d[10]
}

// CheckDigits computes the two check digits for a nine digit base.
func CheckDigits(base string) (string, bool) {
	digits := Digits(base)
	if len(digits) != BaseLength || len(digits) != len(base) {
		return "", false
	}

	d := append(toInts(digits), 0, 0)
	d[9] = rest(d, 10)
	d[10] = rest(d, 11)
	return string([]byte{byte('0' + d[9]), byte('0' + d[10])}), true
}

// Format renders a valid CPF as ###.###.###-##. It returns "" when raw is not valid.
func Format(raw string) string {
	if !IsValid(raw) {
		return ""
	}
	d := Digits(raw)
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}

// Mask hides the leading block and the check digits so the value can be logged.
func Mask(raw string) string {
	d := Digits(raw)
	if len(d) != Length {
		return "***"
	}
	return "***." + d[3:6] + "." + d[6:9] + "-**"
}

// rest computes the check digit that must sit at position count-1, weighting
// d[0..count-2] from count down to 2.
func rest(d []int, count int) int {
	sum := 0
	for i := 0; i < count-1; i++ {
		sum += d[i] * (count - i)
	}
	return (sum * 10) % 11 % 10
}

func allSame(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

func toInts(digits string) []int {
	d := make([]int, len(digits))
	for i := 0; i < len(digits); i++ {
		d[i] = int(digits[i] - '0')
	}
	return d
}
