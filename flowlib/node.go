package flowlib

import "time"

// Node is a single unit of work in a Flow.
type Node interface {
	SetParams(params map[string]interface{})
	Params() map[string]interface{}
	Next(action Action, n Node)
	Successors() map[Action]Node
	Run(shared interface{}) (Action, error)
}

// baseNode implements the bookkeeping shared by every Node
// (parameters, successor wiring, retry budget). Concrete nodes embed
// it and override Run.
type baseNode struct {
	params     map[string]interface{}
	successors map[Action]Node
	maxRetries int
	retryWait  time.Duration
}

func newBaseNode() baseNode {
	return baseNode{
		params:     map[string]interface{}{},
		successors: map[Action]Node{},
	}
}

// NewNode creates a bare node with a retry budget. Concrete node types
// wrap the returned value and override Run; the retry budget is
// advisory bookkeeping for the wrapper, not enforced here, since retry
// policy differs by module variant (see internal/scheduler).
func NewNode(maxRetries int, retryWait time.Duration) *baseNode {
	n := newBaseNode()
	n.maxRetries = maxRetries
	n.retryWait = retryWait
	return &n
}

func (n *baseNode) SetParams(params map[string]interface{}) { n.params = params }
func (n *baseNode) Params() map[string]interface{}          { return n.params }

func (n *baseNode) Next(action Action, next Node) { n.successors[action] = next }

func (n *baseNode) Successors() map[Action]Node { return n.successors }

// MaxRetries returns the configured retry budget.
func (n *baseNode) MaxRetries() int { return n.maxRetries }

// RetryWait returns the configured delay between retries.
func (n *baseNode) RetryWait() time.Duration { return n.retryWait }

// Run is a no-op default so baseNode alone satisfies Node; real nodes
// override it.
func (n *baseNode) Run(shared interface{}) (Action, error) {
	return DefaultAction, nil
}
