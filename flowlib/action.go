// Package flowlib provides a minimal node/flow graph runtime.
//
// A Node performs work against a shared context and returns an Action
// naming which successor to run next. Flows are small linear or
// branching graphs built from Nodes. In streamlet every module instance
// embeds a Node, but no module runs a Flow: module work (including
// paginated fetches) is plain Go code, and the top-level task chain is
// a flat ordered list compiled by internal/chain.
package flowlib

// Action names the outcome of a Node's Run, used to pick the next
// successor in a Flow.
type Action string

// DefaultAction is returned by nodes that have no branching outcomes.
const DefaultAction Action = "default"

// TerminalAction signals that a Flow should stop walking successors
// even though the current node completed without error.
const TerminalAction Action = "terminal"
