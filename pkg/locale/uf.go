package locale

import "strings"

// State is a Brazilian federative unit.
type State struct {
	UF       string
	Name     string
	Timezone string
}

var States = map[string]State{
	"AC": {"AC", "Acre", "America/Rio_Branco"},
	"AL": {"AL", "Alagoas", "America/Maceio"},
	"AP": {"AP", "Amapá", "America/Belem"},
	"AM": {"AM", "Amazonas", "America/Manaus"},
	"BA": {"BA", "Bahia", "America/Bahia"},
	"CE": {"CE", "Ceará", "America/Fortaleza"},
	"DF": {"DF", "Distrito Federal", "America/Sao_Paulo"},
	"ES": {"ES", "Espírito Santo", "America/Sao_Paulo"},
	"GO": {"GO", "Goiás", "America/Sao_Paulo"},
	"MA": {"MA", "Maranhão", "America/Fortaleza"},
	"MT": {"MT", "Mato Grosso", "America/Cuiaba"},
	"MS": {"MS", "Mato Grosso do Sul", "America/Campo_Grande"},
	"MG": {"MG", "Minas Gerais", "America/Sao_Paulo"},
	"PA": {"PA", "Pará", "America/Belem"},
	"PB": {"PB", "Paraíba", "America/Fortaleza"},
	"PR": {"PR", "Paraná", "America/Sao_Paulo"},
	"PE": {"PE", "Pernambuco", "America/Recife"},
	"PI": {"PI", "Piauí", "America/Fortaleza"},
	"RJ": {"RJ", "Rio de Janeiro", "America/Sao_Paulo"},
	"RN": {"RN", "Rio Grande do Norte", "America/Fortaleza"},
	"RS": {"RS", "Rio Grande do Sul", "America/Sao_Paulo"},
	"RO": {"RO", "Rondônia", "America/Porto_Velho"},
	"RR": {"RR", "Roraima", "America/Boa_Vista"},
	"SC": {"SC", "Santa Catarina", "America/Sao_Paulo"},
	"SP": {"SP", "São Paulo", "America/Sao_Paulo"},
	"SE": {"SE", "Sergipe", "America/Maceio"},
	"TO": {"TO", "Tocantins", "America/Araguaina"},
}

// IsValidUF expects an already upper-cased two letter code.
func IsValidUF(uf string) bool {
	_, ok := States[uf]
	return ok
}

func LookupState(uf string) (State, bool) {
	s, ok := States[strings.ToUpper(strings.TrimSpace(uf))]
	return s, ok
}

// TimezoneForState falls back to DefaultTimezone for unknown codes.
func TimezoneForState(uf string) string {
	if s, ok := LookupState(uf); ok {
		return s.Timezone
	}
	return DefaultTimezone
}
