package units

import (
	"fmt"
	"strconv"
	"strings"
)

// baseUnits maps unit symbols to their dimension and SI factor. Mass is
// anchored on the gram so that SI prefixes compose uniformly ("kg" is
// prefix k on g).
var baseUnits = map[string]Unit{
	"1": {Factor: 1},
	"m": {Factor: 1, Dim: Dimension{Length: 1}},
	"g": {Factor: 1e-3, Dim: Dimension{Mass: 1}},
	"s": {Factor: 1, Dim: Dimension{Time: 1}},
	"A": {Factor: 1, Dim: Dimension{Current: 1}},
	"K": {Factor: 1, Dim: Dimension{Temperature: 1}},

	"mol": {Factor: 1, Dim: Dimension{Amount: 1}},
	"cd":  {Factor: 1, Dim: Dimension{Luminosity: 1}},

	"min": {Factor: 60, Dim: Dimension{Time: 1}},
	"h":   {Factor: 3600, Dim: Dimension{Time: 1}},

	"Hz":  {Factor: 1, Dim: Dimension{Time: -1}},
	"N":   {Factor: 1, Dim: Dimension{Mass: 1, Length: 1, Time: -2}},
	"J":   {Factor: 1, Dim: Dimension{Mass: 1, Length: 2, Time: -2}},
	"W":   {Factor: 1, Dim: Dimension{Mass: 1, Length: 2, Time: -3}},
	"C":   {Factor: 1, Dim: Dimension{Current: 1, Time: 1}},
	"V":   {Factor: 1, Dim: Dimension{Mass: 1, Length: 2, Time: -3, Current: -1}},
	"Ohm": {Factor: 1, Dim: Dimension{Mass: 1, Length: 2, Time: -3, Current: -2}},
	"Ω":   {Factor: 1, Dim: Dimension{Mass: 1, Length: 2, Time: -3, Current: -2}},
	"F":   {Factor: 1, Dim: Dimension{Mass: -1, Length: -2, Time: 4, Current: 2}},
	"T":   {Factor: 1, Dim: Dimension{Mass: 1, Time: -2, Current: -1}},

	"L": {Factor: 1e-3, Dim: Dimension{Length: 3}},
}

// prefixes maps SI prefix symbols to their factor.
var prefixes = map[string]float64{
	"y": 1e-24, "z": 1e-21, "a": 1e-18, "f": 1e-15,
	"p": 1e-12, "n": 1e-9, "µ": 1e-6, "u": 1e-6,
	"m": 1e-3, "c": 1e-2, "d": 1e-1, "da": 1e1,
	"k": 1e3, "M": 1e6, "G": 1e9, "T": 1e12,
	"P": 1e15, "E": 1e18, "Z": 1e21, "Y": 1e24,
}

// unicodeExponents rewrites superscript notation into its ASCII form so the
// atom parser only sees digits and '-'.
var unicodeExponents = strings.NewReplacer(
	"⁻", "-", "⁰", "0", "¹", "1", "²", "2", "³", "3",
	"⁴", "4", "⁵", "5", "⁶", "6", "⁷", "7", "⁸", "8", "⁹", "9",
)

// Parse parses a unit token like "V", "mV", "A/cm²", "mA cm⁻²" or
// "mV / s". The empty token and "1" parse as the dimensionless unit.
//
// The grammar is the conventional one for axis labels: atoms are an
// optional SI prefix, a unit symbol and an optional integer exponent;
// atoms are combined with '·', '*', or whitespace (multiplication) and
// '/' (division, binding everything to its right within one atom).
func Parse(token string) (Unit, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" || trimmed == "1" {
		u := Dimensionless
		u.Token = trimmed
		return u, nil
	}

	result := Unit{Token: trimmed, Factor: 1}

	// Tokenize into atoms with a sign: +1 for numerator atoms, -1 after a
	// slash.
	normalized := unicodeExponents.Replace(trimmed)
	normalized = strings.ReplaceAll(normalized, "·", " ")
	normalized = strings.ReplaceAll(normalized, "*", " ")
	normalized = strings.ReplaceAll(normalized, "/", " / ")

	sign := 1
	for _, field := range strings.Fields(normalized) {
		if field == "/" {
			sign = -1
			continue
		}
		atom, err := parseAtom(field)
		if err != nil {
			return Unit{}, err
		}
		result = result.mul(atom.pow(sign))
	}
	return result, nil
}

// parseAtom parses a single prefixed symbol with an optional trailing
// integer exponent, e.g. "cm2", "mV", "s-1".
func parseAtom(atom string) (Unit, error) {
	symbol := atom
	exponent := 1

	// Split a trailing exponent off the symbol.
	if i := strings.IndexAny(symbol, "-0123456789"); i > 0 {
		n, err := strconv.Atoi(symbol[i:])
		if err != nil || n == 0 {
			return Unit{}, fmt.Errorf("%w: %q (bad exponent)", ErrUnknownUnit, atom)
		}
		symbol, exponent = symbol[:i], n
	}

	u, err := lookupSymbol(symbol)
	if err != nil {
		return Unit{}, err
	}
	return u.pow(exponent), nil
}

// lookupSymbol resolves a symbol, trying the bare unit table first so that
// "m" is the metre rather than a dangling milli prefix.
func lookupSymbol(symbol string) (Unit, error) {
	if u, ok := baseUnits[symbol]; ok {
		return u, nil
	}
	// Longest prefix first, so "da" wins over "d" and the two-byte "µ" is
	// matched whole.
	for _, plen := range []int{2, 1} {
		if len(symbol) <= plen {
			continue
		}
		if factor, ok := prefixes[symbol[:plen]]; ok {
			if u, ok := baseUnits[symbol[plen:]]; ok {
				u.Factor *= factor
				return u, nil
			}
		}
	}
	return Unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, symbol)
}
