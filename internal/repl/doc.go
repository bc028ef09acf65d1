// Package repl owns the interactive terminal loops.
//
// Ownership boundary:
// - frame loop: prompt, parse `<msg_id> [payload]`, send, await one reply, print
// - packet loop: prompt ints + text, send, print hex dump
// - per-iteration outcome and error classification (input vs transport)
//
// Each loop owns its connection and closes it exactly once on every exit path.
package repl
