package api

import "github.com/beevik/etree"

// Action is a single document edit primitive. The host applies actions in
// batch order; the core never mutates an attached node in place.
type Action interface {
	isAction()
}

// Remove detaches Node (and its whole subtree) from its parent.
type Remove struct {
	Node *etree.Element
}

// Insert attaches Node under Parent, immediately before Reference.
// A nil Reference appends Node as the last child. Reference is resolved
// against the tree state from before the batch was applied.
type Insert struct {
	Parent    *etree.Element
	Node      *etree.Element
	Reference *etree.Element
}

func (Remove) isAction() {}
func (Insert) isAction() {}

// Batch is an ordered list of actions applied as one transaction.
// An empty batch is a deliberate no-op and must not be dispatched.
type Batch []Action

// Dispatcher applies a batch atomically. The host owns the transaction
// semantics (and undo/redo); the core only constructs batches whose
// intermediate states leave the tree well-formed.
type Dispatcher interface {
	Dispatch(batch Batch) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(batch Batch) error

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(batch Batch) error {
	return f(batch)
}
