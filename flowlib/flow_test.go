package flowlib

import "testing"

type recordingNode struct {
	baseNode
	name string
	log  *[]string
}

func (n *recordingNode) Run(shared interface{}) (Action, error) {
	*n.log = append(*n.log, n.name)
	return DefaultAction, nil
}

func TestFlowWalksSuccessorsInOrder(t *testing.T) {
	var log []string

	a := &recordingNode{baseNode: newBaseNode(), name: "a", log: &log}
	b := &recordingNode{baseNode: newBaseNode(), name: "b", log: &log}
	a.Next(DefaultAction, b)

	f := NewFlow(a)
	if _, err := f.Run(map[string]interface{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(log) != 2 || log[0] != "a" || log[1] != "b" {
		t.Fatalf("expected [a b], got %v", log)
	}
}

func TestFlowStopsOnTerminalAction(t *testing.T) {
	var log []string

	// a node returning TerminalAction should end the walk even with a successor wired
	term := &terminalNode{baseNode: newBaseNode()}
	after := &recordingNode{baseNode: newBaseNode(), name: "after", log: &log}
	term.Next(DefaultAction, after)

	f := NewFlow(term)
	if _, err := f.Run(map[string]interface{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(log) != 0 {
		t.Fatalf("expected no nodes after terminal action, got %v", log)
	}
}

type terminalNode struct {
	baseNode
}

func (n *terminalNode) Run(shared interface{}) (Action, error) {
	return TerminalAction, nil
}
