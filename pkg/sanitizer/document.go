package sanitizer

import (
	"strings"

	"intake/pkg/cpf"
)

const CEPLength = 8

func NormalizeCPF(raw string) string {
	return cpf.Digits(raw)
}

// NormalizeCEP keeps digits only. "01001-000" becomes "01001000".
func NormalizeCEP(raw string) string {
	return cpf.Digits(raw)
}

// NormalizeDocument trims identity document numbers such as RG that may
// legitimately carry letters, and uppercases them.
func NormalizeDocument(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}
