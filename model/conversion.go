package model

import "strings"

// unitFactor is a table of MTConnect unit symbols to their SI-ish base
// factor, mirroring the hardcoded conversion table the teacher's
// UnitConversion::make builds from (unit_conversion.hpp). Units not
// present default to a factor of 1 (no-op), which is the conservative
// choice for an unrecognized symbol.
var unitFactor = map[string]float64{
	"MILLIMETER":   1,
	"CENTIMETER":   10,
	"METER":        1000,
	"INCH":         25.4,
	"FOOT":         304.8,
	"DEGREE":       1,
	"RADIAN":       57.29577951308232,
	"REVOLUTION":   360,
	"SECOND":       1,
	"MINUTE":       60,
	"HOUR":         3600,
	"MILLISECOND":  0.001,
	"GRAM":         1,
	"KILOGRAM":     1000,
	"POUND":        453.59237,
	"PERCENT":      1,
	"COUNT":        1,
	"AMPERE":       1,
	"VOLT":         1,
	"HERTZ":        1,
	"PASCAL":       1,
	"NEWTON":       1,
	"JOULE":        1,
	"WATT":         1,
}

const kiloPrefix = "KILO"

// symbolicFactor parses a native-units expression with numerator,
// denominator, and `^exponent` syntax (e.g. "MILLIMETER/MINUTE",
// "REVOLUTION/MINUTE^2") and returns the factor that converts one unit
// of the native expression into the equivalent MTConnect base unit.
func symbolicFactor(expr string) float64 {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 1
	}
	parts := strings.SplitN(expr, "/", 2)
	num := termFactor(parts[0])
	if len(parts) == 1 {
		return num
	}
	den := termFactor(parts[1])
	if den == 0 {
		return num
	}
	return num / den
}

// termFactor resolves a single unit term, honoring a trailing `^n`
// exponent and a leading KILO prefix (which multiplies by 1000 per
// spec.md §3, independent of the unit's own base factor).
func termFactor(term string) float64 {
	term = strings.TrimSpace(term)
	if term == "" {
		return 1
	}
	exp := 1
	if i := strings.Index(term, "^"); i >= 0 {
		base := term[:i]
		switch term[i+1:] {
		case "2":
			exp = 2
		case "3":
			exp = 3
		}
		term = base
	}
	kilo := false
	if strings.HasPrefix(term, kiloPrefix) {
		kilo = true
		term = strings.TrimPrefix(term, kiloPrefix)
	}
	f, ok := unitFactor[term]
	if !ok {
		f = 1
	}
	if kilo {
		f *= 1000
	}
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= f
	}
	return result
}

// isThreeSpace reports whether a (native) units string marks a
// three-element vector value, per spec.md §3 ("units containing `3D`").
func isThreeSpace(units string) bool {
	return strings.Contains(units, "3D")
}

// deriveConversion computes the (factor, offset) pair for a data item
// whose NativeUnits (or NativeScale) differs from Units, per spec.md §3:
// Fahrenheit->Celsius carries offset -32; KILO-prefixed native units
// multiply by 1000; numerator/denominator/exponent native-unit syntax is
// parsed symbolically.
func deriveConversion(units, nativeUnits string, nativeScale float64) *Conversion {
	if nativeUnits == "" && nativeScale == 0 {
		return nil
	}
	if nativeUnits == units && nativeScale == 0 {
		return nil
	}

	conv := &Conversion{Factor: 1, Offset: 0}

	switch {
	case strings.Contains(units, "CELSIUS") && strings.Contains(nativeUnits, "FAHRENHEIT"):
		conv.Offset = -32
		conv.Factor = 5.0 / 9.0
	case nativeUnits != "" && nativeUnits != units:
		baseUnits := symbolicFactor(stripThreeSpace(units))
		baseNative := symbolicFactor(stripThreeSpace(nativeUnits))
		if baseUnits != 0 {
			conv.Factor = baseNative / baseUnits
		}
	}

	if nativeScale != 0 {
		conv.Factor /= nativeScale
	}

	if conv.Factor == 1 && conv.Offset == 0 {
		return nil
	}
	return conv
}

func stripThreeSpace(units string) string {
	return strings.ReplaceAll(units, "_3D", "")
}
