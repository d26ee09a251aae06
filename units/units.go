// Package units implements the small physical-unit layer the digitizer
// needs: parsing unit tokens found in calibration labels (e.g. "mV",
// "uA/cm2", "A/cm²") and converting values between commensurable units.
//
// A unit is a dimension vector over the seven SI base dimensions together
// with a scalar factor to the coherent SI unit of that dimension. This is
// deliberately not a general-purpose units library: it covers the tokens
// that appear on traced plot axes.
package units

import (
	"errors"
	"fmt"
	"math"
)

// Unit errors.
var (
	// ErrIncompatibleUnits is returned when a conversion is requested
	// between units of different dimension (e.g. volts to amperes).
	ErrIncompatibleUnits = errors.New("units: incompatible dimensions")
	// ErrUnknownUnit is returned when a token cannot be parsed.
	ErrUnknownUnit = errors.New("units: unknown unit")
)

// Dimension is an exponent vector over the SI base dimensions.
type Dimension struct {
	Length      int // metre
	Mass        int // kilogram
	Time        int // second
	Current     int // ampere
	Temperature int // kelvin
	Amount      int // mole
	Luminosity  int // candela
}

// IsZero reports whether the dimension is dimensionless.
func (d Dimension) IsZero() bool {
	return d == Dimension{}
}

func (d Dimension) add(other Dimension) Dimension {
	return Dimension{
		Length:      d.Length + other.Length,
		Mass:        d.Mass + other.Mass,
		Time:        d.Time + other.Time,
		Current:     d.Current + other.Current,
		Temperature: d.Temperature + other.Temperature,
		Amount:      d.Amount + other.Amount,
		Luminosity:  d.Luminosity + other.Luminosity,
	}
}

func (d Dimension) scale(n int) Dimension {
	return Dimension{
		Length:      d.Length * n,
		Mass:        d.Mass * n,
		Time:        d.Time * n,
		Current:     d.Current * n,
		Temperature: d.Temperature * n,
		Amount:      d.Amount * n,
		Luminosity:  d.Luminosity * n,
	}
}

// Unit is a parsed physical unit: the original token, its dimension and the
// factor that converts a value in this unit to the coherent SI unit of the
// same dimension.
type Unit struct {
	Token  string
	Factor float64
	Dim    Dimension
}

// Dimensionless is the unit of pure numbers.
var Dimensionless = Unit{Token: "", Factor: 1}

// String returns the original token ("1" for the dimensionless unit).
func (u Unit) String() string {
	if u.Token == "" {
		return "1"
	}
	return u.Token
}

// Compatible reports whether values in u can be converted to values in
// other.
func (u Unit) Compatible(other Unit) bool {
	return u.Dim == other.Dim
}

// ConvertTo converts value, expressed in u, to the unit other.
func (u Unit) ConvertTo(value float64, other Unit) (float64, error) {
	if !u.Compatible(other) {
		return 0, fmt.Errorf("%w: %s vs %s", ErrIncompatibleUnits, u, other)
	}
	return value * u.Factor / other.Factor, nil
}

// mul returns the product of two units, keeping u's token.
func (u Unit) mul(other Unit) Unit {
	return Unit{Token: u.Token, Factor: u.Factor * other.Factor, Dim: u.Dim.add(other.Dim)}
}

// pow raises a unit to an integer power, keeping u's token.
func (u Unit) pow(n int) Unit {
	return Unit{Token: u.Token, Factor: math.Pow(u.Factor, float64(n)), Dim: u.Dim.scale(n)}
}

// Convert converts value from one unit token to another. It fails with
// ErrUnknownUnit when either token cannot be parsed and with
// ErrIncompatibleUnits when the two dimensions differ.
func Convert(value float64, from, to string) (float64, error) {
	f, err := Parse(from)
	if err != nil {
		return 0, err
	}
	t, err := Parse(to)
	if err != nil {
		return 0, err
	}
	return f.ConvertTo(value, t)
}

// MustParse parses a unit token and panics on failure. Intended for
// constants and tests.
func MustParse(token string) Unit {
	u, err := Parse(token)
	if err != nil {
		panic(err)
	}
	return u
}
