package sanitizer

import (
	"strings"

	"intake/pkg/locale"

	"github.com/nyaruka/phonenumbers"
)

func NormalizePhone(phone string) string {
	return NormalizePhoneIn(phone, locale.DefaultRegion)
}

// NormalizePhoneIn formats phone as E.164. Numbers without a country prefix
// are parsed in region. Unparseable or impossible numbers become "".
func NormalizePhoneIn(phone, region string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}
	if !locale.IsSupportedRegion(region) {
		region = locale.DefaultRegion
	}

	parsedNumber, err := phonenumbers.Parse(phone, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsPossibleNumber(parsedNumber) {
		return ""
	}
	return phonenumbers.Format(parsedNumber, phonenumbers.E164)
}
