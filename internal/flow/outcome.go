package flow

import (
	"fmt"

	"github.com/narrativeflow/storyflow/pkg/model"
)

// OutcomeKind classifies what a Next step produced.
type OutcomeKind int

const (
	// Emitted means the walker stopped on a node the host should present.
	Emitted OutcomeKind = iota
	// Ended means the traversal is over: the cursor reached the terminal
	// sentinel with an empty sub-flow stack (or the depth cap tripped).
	Ended
	// BadJump means a JumpToNode names a flow or node that does not
	// exist; the cursor is left where it was.
	BadJump
)

func (k OutcomeKind) String() string {
	switch k {
	case Emitted:
		return "emitted"
	case Ended:
		return "ended"
	case BadJump:
		return "bad_jump"
	default:
		return "unknown"
	}
}

// Outcome is the result of one Next step. Node is set for Emitted (the
// node to present) and BadJump (the offending JumpToNode). Err carries
// the structural failure behind a BadJump or a depth-capped Ended.
type Outcome struct {
	Kind OutcomeKind
	Node *model.Node
	Err  *FlowError
}

// FlowErrorKind classifies a structural walking failure.
type FlowErrorKind int

const (
	// BadJumpTarget is a JumpToNode whose (flow, node) pair resolves to nothing.
	BadJumpTarget FlowErrorKind = iota
	// DepthExceeded is the pass-through depth cap tripping, guarding
	// against author-induced loops over nodes that never emit.
	DepthExceeded
)

// FlowError is the structural-failure detail attached to an Outcome.
type FlowError struct {
	Kind   FlowErrorKind
	FlowID string
	NodeID string
}

func (e *FlowError) Error() string {
	switch e.Kind {
	case BadJumpTarget:
		return fmt.Sprintf("jump target does not exist: flow %q node %q", e.FlowID, e.NodeID)
	case DepthExceeded:
		return fmt.Sprintf("pass-through depth exceeded in flow %q", e.FlowID)
	default:
		return "flow error"
	}
}
