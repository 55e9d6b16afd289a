package locale

import (
	"strings"
)

const (
	DefaultRegion   = "BR"
	DefaultTimezone = "America/Sao_Paulo"
)

type Country struct {
	Code            string // ISO 3166-1 alpha-2 country code (e.g., "BR", "PT")
	Name            string // Human-readable country name
	DefaultTimezone string // IANA timezone identifier (e.g., "America/Sao_Paulo")
}

var (
	Countries = map[string]Country{
		"BR": {
			Code:            "BR",
			Name:            "Brasil",
			DefaultTimezone: "America/Sao_Paulo",
		},
		"PT": {
			Code:            "PT",
			Name:            "Portugal",
			DefaultTimezone: "Europe/Lisbon",
		},
		"US": {
			Code:            "US",
			Name:            "United States",
			DefaultTimezone: "America/New_York",
		},
	}
)

// IsSupportedRegion reports whether phone numbers without a country prefix
// may be parsed in the given region.
func IsSupportedRegion(region string) bool {
	_, ok := Countries[strings.ToUpper(strings.TrimSpace(region))]
	return ok
}
