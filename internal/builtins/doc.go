// Package builtins provides the gateway's tool packs.
//
// # Overview
//
// Builtin tools are registered at startup from a State holding the two
// optional backend clients. A tool whose backend is not configured stays
// registered and answers with a short explanation of the missing setting.
//
// # Tool Packs
//
// Math Pack (builtin:math):
//
//   - add: Add two numbers
//   - divide: Divide a by b (zero divisor is rejected)
//
// Wolfram|Alpha Pack (builtin:wolfram_alpha) - requires wolfram_alpha.app_id:
//
//   - wolfram_alpha: Natural-language query, plain text answer
//   - wolfram_alpha_full: Natural-language query, every pod with images
//
// Wolfram Language Pack (builtin:wolfram_language) - requires execution.base_url:
//
//   - wolfram_execute: Run Wolfram Language code
//   - wolfram_evaluate: Evaluate one expression
//   - wolfram_status: Report backend configuration and health
//
// wolfram_execute and wolfram_evaluate probe the execution server's health
// before every call and stop with an explanation when it is down.
//
// # Registration
//
//	state, err := builtins.Initialize(cfg, builtins.Options{Version: version})
//	err = builtins.RegisterAll(registry, state)
package builtins
