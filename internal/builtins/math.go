// ABOUTME: Math pack provides the local arithmetic tools: add and divide.
// ABOUTME: No backend is involved; divide rejects a zero divisor before dividing.

package builtins

import (
	"context"
	"math"
	"strconv"

	"github.com/2389/wolfram-gateway/internal/tools"
)

// DivisionByZero is the text returned for divide with b == 0.
const DivisionByZero = "Error: Division by zero is not allowed"

// OutOfRange is the text returned when a result overflows float64.
const OutOfRange = "Error: Result is outside the representable number range"

// MathPack creates the math pack.
func MathPack() tools.Pack {
	operands := []tools.Field{
		{Name: "a", Type: tools.TypeNumber, Description: "First number", Required: true},
		{Name: "b", Type: tools.TypeNumber, Description: "Second number", Required: true},
	}
	return tools.Pack{
		ID: "builtin:math",
		Tools: []tools.Spec{
			{
				Name:        "add",
				Description: "Add two numbers together",
				Fields:      operands,
				ErrorPrefix: "Error adding numbers",
				Handler:     add,
			},
			{
				Name:        "divide",
				Description: "Divide a by b",
				Fields:      operands,
				ErrorPrefix: "Error dividing numbers",
				Handler:     divide,
			},
		},
	}
}

func add(_ context.Context, args tools.Args) (tools.Result, error) {
	return numberResult(args.Float("a") + args.Float("b")), nil
}

func divide(_ context.Context, args tools.Args) (tools.Result, error) {
	b := args.Float("b")
	if b == 0 {
		return tools.Text(DivisionByZero), nil
	}
	return numberResult(args.Float("a") / b), nil
}

func numberResult(v float64) tools.Result {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return tools.Text(OutOfRange)
	}
	return tools.Text(formatNumber(v))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
