package flowlib

// Flow walks a chain of Nodes starting at start, following the Action
// each Node returns to pick the next successor. It stops when a node
// has no successor for its returned action, returns TerminalAction, or
// errors.
type Flow struct {
	baseNode
	start Node
}

// NewFlow creates a Flow rooted at start.
func NewFlow(start Node) *Flow {
	return &Flow{baseNode: newBaseNode(), start: start}
}

// Run executes the flow against shared, returning the last action
// produced and any error encountered along the way.
func (f *Flow) Run(shared interface{}) (Action, error) {
	current := f.start
	last := DefaultAction

	for current != nil {
		action, err := current.Run(shared)
		if err != nil {
			return action, err
		}

		last = action
		if action == TerminalAction {
			break
		}

		current = current.Successors()[action]
	}

	return last, nil
}
