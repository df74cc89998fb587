// Package tools provides the tool registry and dispatcher.
//
// # Overview
//
// A tool is a named operation with a typed argument list and a handler. Tools
// are grouped into packs and registered once at startup (see internal/builtins).
// Tool names are unique across all packs.
//
// # Arguments
//
// Each tool declares its arguments as a list of Field values. The registry
// generates a JSON Schema from them, compiles it at registration, and uses it
// for every call:
//
//  1. Unknown arguments are rejected
//  2. Missing required arguments are rejected; absent optional ones get their default
//  3. Values must match the declared type (string, number, integer, boolean)
//  4. String values must be in the enum when one is declared
//  5. The compiled schema enforces numeric bounds
//
// Validation failures never reach the handler. They are returned as a text
// Result describing the violated constraint.
//
// # Results
//
// Every call produces a Result holding text content, whether it succeeded or
// not. Handlers may return an error; the error boundary turns it into
// "<ErrorPrefix>: <message>". A panicking handler produces
// "Internal error in tool <name>" and is logged with its stack.
//
// The only error Dispatch returns is ErrToolNotFound.
//
// # Usage
//
//	registry := tools.NewRegistry(logger, tools.WithObserver(metrics))
//	err := registry.RegisterPack(tools.Pack{ID: "builtin:math", Tools: specs})
//	result, err := registry.Dispatch(ctx, "divide", map[string]any{"a": 1.0, "b": 2.0})
package tools
