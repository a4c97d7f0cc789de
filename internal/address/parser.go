// Package address contains the heuristic single-line address tokenizer used
// when intake data arrives as one loosely formatted string. It is best-effort
// only; verified addresses come from the external validation service.
package address

import (
	"regexp"
	"strings"

	"github.com/settleline/conveyor/internal/domain"
)

var (
	separators  = regexp.MustCompile(`[,\s]+`)
	postcodeRef = regexp.MustCompile(`^\d{4}$`)
)

// auStates covers the abbreviations the parser recognises as a trailing
// state token, matched case-insensitively.
var auStates = map[string]string{
	"ACT": "ACT",
	"NSW": "NSW",
	"NT":  "NT",
	"QLD": "QLD",
	"SA":  "SA",
	"TAS": "TAS",
	"VIC": "VIC",
	"WA":  "WA",
}

// Parse decomposes a single-line Australian address into its structured
// parts. It never fails: unrecoverable fields come back as empty strings.
//
// Known quirk: a single-token input such as "QLD" yields Line1 == " "
// because the unit/number and street-name parts are joined unconditionally.
// Downstream consumers rely on the current behavior, so it is preserved.
func Parse(raw string) domain.MatterCreateDetailAddress {
	out := domain.MatterCreateDetailAddress{Type: domain.AddressTypePhysical}

	tokens := tokenize(raw)

	if n := len(tokens); n > 0 && postcodeRef.MatchString(tokens[n-1]) {
		out.Postcode = tokens[n-1]
		tokens = tokens[:n-1]
	}

	if n := len(tokens); n > 0 {
		if st, ok := auStates[strings.ToUpper(tokens[n-1])]; ok {
			out.State = st
			tokens = tokens[:n-1]
		}
	}

	var streetCandidate string
	switch n := len(tokens); {
	case n > 1:
		out.Suburb = tokens[n-1]
		streetCandidate = strings.Join(tokens[:n-1], " ")
	case n == 1:
		streetCandidate = tokens[0]
	}

	number, street := splitStreet(streetCandidate)
	out.Line1 = number + " " + street
	return out
}

func tokenize(raw string) []string {
	var tokens []string
	for _, tok := range separators.Split(raw, -1) {
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// splitStreet peels a leading unit/street-number token off the street-name
// candidate. A single-token candidate is treated as a bare street name.
func splitStreet(candidate string) (number, street string) {
	parts := strings.Fields(candidate)
	if len(parts) > 1 {
		return parts[0], strings.Join(parts[1:], " ")
	}
	if len(parts) == 1 {
		return "", parts[0]
	}
	return "", ""
}
