package circuit

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// paramPattern matches a single parameter value: numbers, pi expressions, or combinations.
// Examples: "1.5707", "pi", "pi/2", "3*pi/4", "-pi", "-2*pi/3", "3.14e-2"
const paramPattern = `-?(?:\d*\.?\d*\*?pi(?:/\d+\.?\d*)?|\d*\.?\d+(?:[eE][+\-]?\d+)?)`

// piExprRegex matches expressions like: pi, 2pi, 2*pi, pi/2, 3pi/4, 3*pi/4, -pi, -pi/2, -3*pi/4
var piExprRegex = regexp.MustCompile(`^(-?)(\d*\.?\d*)\s*\*?\s*pi(?:\s*/\s*(\d+\.?\d*))?$`)

// ParseParamExpr parses a single parameter expression, supporting plain numbers and pi expressions.
//
// Supported formats:
//   - Plain numbers: "1.5707", "3.14", "-0.5", "1e-3"
//   - Pi constant: "pi"
//   - Pi fractions: "pi/2", "pi/4", "pi/3"
//   - Coefficients: "2pi", "2*pi", "3pi/4", "3*pi/4"
//   - Negative: "-pi", "-pi/2", "-3*pi/4"
func ParseParamExpr(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if val, err := strconv.ParseFloat(s, 64); err == nil {
		return val, true
	}

	s = strings.ToLower(s)
	matches := piExprRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0, false
	}

	coeff := 1.0
	if matches[2] != "" {
		var err error
		coeff, err = strconv.ParseFloat(matches[2], 64)
		if err != nil {
			return 0, false
		}
	}

	result := coeff * math.Pi
	if matches[3] != "" {
		denom, err := strconv.ParseFloat(matches[3], 64)
		if err != nil || denom == 0 {
			return 0, false
		}
		result /= denom
	}

	if matches[1] == "-" {
		result = -result
	}
	return result, true
}

// piForms are the pi fractions FormatParam prints symbolically.
var piForms = []struct {
	value   float64
	display string
}{
	{2 * math.Pi, "2*pi"},
	{math.Pi, "pi"},
	{math.Pi / 2, "pi/2"},
	{math.Pi / 3, "pi/3"},
	{math.Pi / 4, "pi/4"},
	{math.Pi / 6, "pi/6"},
	{math.Pi / 8, "pi/8"},
	{3 * math.Pi / 4, "3*pi/4"},
	{3 * math.Pi / 2, "3*pi/2"},
	{2 * math.Pi / 3, "2*pi/3"},
}

// FormatParam formats a float64 parameter value, using pi notation when it is exact.
// Other values keep full precision so QASM output round-trips.
func FormatParam(val float64) string {
	for _, pf := range piForms {
		if math.Abs(val-pf.value) < 1e-12 {
			return pf.display
		}
		if math.Abs(val+pf.value) < 1e-12 {
			return "-" + pf.display
		}
	}
	return strconv.FormatFloat(val, 'g', -1, 64)
}

// ParseParams parses a comma separated parameter list.
// Returns nil if any part fails to parse.
func ParseParams(input string) []float64 {
	var params []float64
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		val, ok := ParseParamExpr(part)
		if !ok {
			return nil
		}
		params = append(params, val)
	}
	return params
}

func formatParamList(params []float64) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = FormatParam(p)
	}
	return strings.Join(parts, ", ")
}

// String renders the gate in a compact single-line form used by logs.
func (g Gate) String() string {
	if len(g.Params) > 0 {
		return fmt.Sprintf("%s(%s)%v", g.Type, formatParamList(g.Params), g.Qubits())
	}
	return fmt.Sprintf("%s%v", g.Type, g.Qubits())
}
