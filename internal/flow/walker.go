// Package flow implements the node-type-dispatched state machine at the
// heart of the runtime (§4.6): it advances the cursor, selects outgoing
// connections per node type, manages the sub-flow call stack and the
// jumping mode, and decides which nodes are surfaced to the host.
package flow

import (
	"strings"

	"github.com/narrativeflow/storyflow/internal/expreval"
	"github.com/narrativeflow/storyflow/internal/selector"
	"github.com/narrativeflow/storyflow/internal/template"
	"github.com/narrativeflow/storyflow/internal/varstore"
	"github.com/narrativeflow/storyflow/pkg/model"
)

// TheEnd is the reserved cursor value marking a terminated traversal;
// every Next call after it returns Ended.
const TheEnd = "THE END"

// Observer receives walking events; the runtime wires its structured
// logger in here. All methods may be called with high frequency and
// must not block.
type Observer interface {
	NodeEmitted(flowID, nodeID string)
	JumpFailed(flowID, nodeID string)
	FlowEnded(flowID string)
}

type subFlowFrame struct {
	FlowID string
	NodeID string
}

// Deps wires a Walker to the runtime's shared collaborators.
type Deps struct {
	Project   *model.Project
	Templater *template.Templater
	Evaluator *expreval.Evaluator
	Globals   *varstore.Store
	Locals    *varstore.Store
	Pick      selector.Pick
	MaxDepth  int
	Locale    string
	Observer  Observer
}

// Walker owns the traversal cursor and the sub-flow call stack for one
// running story.
type Walker struct {
	project   *model.Project
	templater *template.Templater
	eval      *expreval.Evaluator
	globals   *varstore.Store
	locals    *varstore.Store
	pick      selector.Pick
	maxDepth  int
	locale    string
	observer  Observer

	selectedFlowID string
	selectedNodeID string
	isJumping      bool
	subFlows       []subFlowFrame
}

// New builds a Walker. The cursor is unset until Start.
func New(d Deps) *Walker {
	if d.MaxDepth <= 0 {
		d.MaxDepth = 1000
	}
	return &Walker{
		project:   d.Project,
		templater: d.Templater,
		eval:      d.Evaluator,
		globals:   d.Globals,
		locals:    d.Locals,
		pick:      d.Pick,
		maxDepth:  d.MaxDepth,
		locale:    d.Locale,
		observer:  d.Observer,
	}
}

// SetLocale changes the locale subsequent renders and condition
// evaluations resolve against.
func (w *Walker) SetLocale(locale string) { w.locale = locale }

// SelectedFlowID returns the flow the cursor currently sits in.
func (w *Walker) SelectedFlowID() string { return w.selectedFlowID }

// SelectedNodeID returns the cursor node, or TheEnd once terminated.
func (w *Walker) SelectedNodeID() string { return w.selectedNodeID }

// Ended reports whether the traversal hit the terminal sentinel.
func (w *Walker) Ended() bool { return w.selectedNodeID == TheEnd }

// Start resolves the flow (by ID, name or slug; default: the first flow
// of the first flow group) and places the cursor on nodeID or on the
// flow's Start node.
func (w *Walker) Start(nodeID, flowName string) error {
	var (
		fl  *model.Flow
		err error
	)
	if flowName != "" {
		fl, err = w.project.FindFlow(flowName)
	} else {
		fl, err = w.project.FirstFlow()
	}
	if err != nil {
		return err
	}

	w.selectedFlowID = fl.ID
	if nodeID != "" {
		w.selectedNodeID = nodeID
		return nil
	}
	start, err := fl.StartNode()
	if err != nil {
		return err
	}
	w.selectedNodeID = start.ID
	return nil
}

// Restart places the cursor back on the current flow's Start node,
// leaving variables, visitation and variation state untouched.
func (w *Walker) Restart() error {
	fl, err := w.selectedFlow()
	if err != nil {
		return err
	}
	start, err := fl.StartNode()
	if err != nil {
		return err
	}
	w.selectedNodeID = start.ID
	w.isJumping = false
	return nil
}

// Next advances the cursor by one emitted node. elementID names the
// chosen element when the current node is a Choice; it is ignored (and
// cleared for the pass-through continuation) otherwise.
//
// The recursion the transition rules describe is run as a bounded loop:
// past maxDepth internal transitions the traversal ends rather than
// spinning on an authored cycle with no emitting node.
func (w *Walker) Next(elementID string) Outcome {
	elID := elementID
	for depth := 0; ; depth++ {
		if depth >= w.maxDepth {
			w.selectedNodeID = TheEnd
			return Outcome{Kind: Ended, Err: &FlowError{Kind: DepthExceeded, FlowID: w.selectedFlowID}}
		}
		if w.selectedNodeID == TheEnd {
			return Outcome{Kind: Ended}
		}

		current, err := w.node(w.selectedFlowID, w.selectedNodeID)
		if err != nil {
			w.selectedNodeID = TheEnd
			return Outcome{Kind: Ended}
		}

		conn, involved := w.availableConnection(current, elID)
		if conn == nil {
			if fc := current.OutgoingFailConnection(); fc != nil {
				conn, involved = fc, nil
			}
		}

		// Pre-transition bookkeeping.
		switch {
		case current.Type == model.NodeChoice && !w.isJumping:
			if el := current.ElementByID(elID); el != nil {
				// Realize the chosen choice's assignment blocks now.
				w.templater.Render(el, current, true, w.locale)
				if el.JustOnce {
					el.Visited = true
				}
			}
		case current.Type == model.NodeJumpToNode:
			jt := current.JumpTo
			if jt == nil || !w.jumpTargetExists(jt) {
				ferr := &FlowError{Kind: BadJumpTarget}
				if jt != nil {
					ferr.FlowID, ferr.NodeID = jt.FlowID, jt.NodeID
				}
				if w.observer != nil {
					w.observer.JumpFailed(w.selectedFlowID, current.ID)
				}
				return Outcome{Kind: BadJump, Node: current, Err: ferr}
			}
			w.selectedFlowID = w.jumpFlowID(jt)
			w.selectedNodeID = jt.NodeID
			w.isJumping = true
		default:
			if involved != nil {
				involved.Visited = true
			}
		}

		// Target selection.
		if conn == nil && current.Type != model.NodeJumpToNode {
			if resumed := w.resumeSubFlow(); resumed {
				elID = ""
				continue
			}
			return w.end()
		}
		if !w.isJumping && conn != nil {
			w.moveTo(conn)
		}

		// Resolve the target, redirecting through fail paths of
		// exhausted Choice nodes. Redirects share the depth budget so a
		// fail-path cycle between exhausted choices cannot spin.
		var target *model.Node
		for redirects := 0; ; redirects++ {
			if redirects >= w.maxDepth {
				w.selectedNodeID = TheEnd
				return Outcome{Kind: Ended, Err: &FlowError{Kind: DepthExceeded, FlowID: w.selectedFlowID}}
			}
			target, err = w.node(w.selectedFlowID, w.selectedNodeID)
			if err != nil {
				w.selectedNodeID = TheEnd
				return Outcome{Kind: Ended}
			}
			target.PreviousNodeID = current.ID
			if target.Type == model.NodeChoice && len(w.AvailableChoices(target)) == 0 {
				if fc := target.OutgoingFailConnection(); fc != nil {
					w.moveTo(fc)
					continue
				}
				target = nil
			}
			break
		}
		w.isJumping = false

		if target == nil {
			// A Choice with nothing to offer and no fail path behaves
			// like walking off the end of the flow.
			if resumed := w.resumeSubFlow(); resumed {
				elID = ""
				continue
			}
			return w.end()
		}

		// Internal nodes pass through silently.
		if !target.Type.Emits() {
			elID = ""
			continue
		}
		if w.observer != nil {
			w.observer.NodeEmitted(w.selectedFlowID, target.ID)
		}
		return Outcome{Kind: Emitted, Node: target}
	}
}

// availableConnection dispatches on the current node's type and returns
// the outgoing connection to follow plus the element the decision
// involved (Condition/Sequence), if any.
func (w *Walker) availableConnection(n *model.Node, elID string) (*model.Connection, *model.NodeElement) {
	switch n.Type {
	case model.NodeChoice:
		if elID == "" {
			return nil, nil
		}
		for _, c := range n.Connections {
			if c.Type != model.ConnFailCondition && c.NodeElementID == elID {
				return c, nil
			}
		}
		return nil, nil

	case model.NodeCondition:
		for _, el := range n.Elements {
			if w.conditionHolds(n, el) {
				return w.connectionForElement(n, el.ID), el
			}
		}
		return nil, nil

	case model.NodeVariables:
		for _, el := range n.Elements {
			w.templater.Render(el, n, true, w.locale)
		}
		return w.firstNonFailConnection(n), nil

	case model.NodeRandom:
		conns := w.nonFailConnections(n)
		if len(conns) == 0 {
			return nil, nil
		}
		return conns[w.pick(len(conns))], nil

	case model.NodeSequence:
		if n.CycleType == model.CycleList && selector.AllVisited(n) && n.OutgoingFailConnection() != nil {
			return nil, nil // exhausted with a fail path: take it
		}
		el := selector.Select(n, w.pick)
		if el == nil {
			return w.firstNonFailConnection(n), nil
		}
		return w.connectionForElement(n, el.ID), el

	case model.NodeSubFlow:
		if i := w.frameIndex(w.selectedFlowID, n.ID); i >= 0 {
			// Returning from the callee: pop and resume past the call edge.
			w.subFlows = append(w.subFlows[:i], w.subFlows[i+1:]...)
			for _, c := range n.Connections {
				if c.Type != model.ConnSubFlow && c.Type != model.ConnFailCondition {
					return c, nil
				}
			}
			return nil, nil
		}
		for _, c := range n.Connections {
			if c.Type == model.ConnSubFlow {
				w.subFlows = append(w.subFlows, subFlowFrame{FlowID: w.selectedFlowID, NodeID: n.ID})
				return c, nil
			}
		}
		return w.firstNonFailConnection(n), nil

	case model.NodeJumpToNode:
		// Handled by the pre-transition bookkeeping; no connection.
		return nil, nil

	default: // Start, Text, Note, Layout, Label
		return w.firstNonFailConnection(n), nil
	}
}

// AvailableChoices filters a Choice node's elements down to the ones the
// host may present: unvisited elements whose current rendering is
// non-empty. Elements rendering empty self-hide; a previously hidden
// element whose text turned non-empty is un-hidden. Fallback-only
// elements ([+]) are excluded from the normal list and returned alone
// once every regular choice is spent.
func (w *Walker) AvailableChoices(node *model.Node) []*model.NodeElement {
	var avail []*model.NodeElement
	for _, el := range node.Elements {
		rendered := strings.TrimSpace(w.templater.Render(el, node, false, w.locale))
		if el.IfNoMore {
			el.Visited = true
			continue
		}
		if rendered == "" {
			if !el.Visited {
				el.Visited = true
				el.WasHiddenBecauseEmpty = true
			}
			continue
		}
		if el.WasHiddenBecauseEmpty {
			el.Visited = false
			el.WasHiddenBecauseEmpty = false
		}
		if !el.Visited {
			avail = append(avail, el)
		}
	}
	if len(avail) == 0 {
		for _, el := range node.Elements {
			if el.IfNoMore {
				avail = append(avail, el)
			}
		}
	}
	return avail
}

// conditionHolds evaluates a Condition element's text as a boolean.
// The text may be brace-wrapped or bare; a broken or undefined
// expression is simply not truthy (authoring errors never abort a walk).
func (w *Walker) conditionHolds(n *model.Node, el *model.NodeElement) bool {
	raw := strings.TrimSpace(w.templater.Original(el, n, false, false, w.locale))
	if raw == "" {
		return false
	}
	if strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
		raw = raw[1 : len(raw)-1]
	}
	res, errv := w.eval.Eval(raw, w.globals, w.locals)
	if errv != nil {
		return false
	}
	return expreval.Truthy(res.Value)
}

func (w *Walker) connectionForElement(n *model.Node, elementID string) *model.Connection {
	for _, c := range n.Connections {
		if c.Type != model.ConnFailCondition && c.NodeElementID == elementID {
			return c
		}
	}
	return nil
}

func (w *Walker) firstNonFailConnection(n *model.Node) *model.Connection {
	for _, c := range n.Connections {
		if c.Type != model.ConnFailCondition {
			return c
		}
	}
	return nil
}

func (w *Walker) nonFailConnections(n *model.Node) []*model.Connection {
	var out []*model.Connection
	for _, c := range n.Connections {
		if c.Type != model.ConnFailCondition {
			out = append(out, c)
		}
	}
	return out
}

// resumeSubFlow places the cursor back on the top frame's SubFlow node.
// The frame itself stays on the stack: the SubFlow dispatch pops it and
// takes the continue edge, which is how it tells a return from a call.
func (w *Walker) resumeSubFlow() bool {
	if len(w.subFlows) == 0 {
		return false
	}
	frame := w.subFlows[len(w.subFlows)-1]
	w.selectedFlowID = frame.FlowID
	w.selectedNodeID = frame.NodeID
	return true
}

func (w *Walker) end() Outcome {
	ended := w.selectedFlowID
	w.selectedNodeID = TheEnd
	if w.observer != nil {
		w.observer.FlowEnded(ended)
	}
	return Outcome{Kind: Ended}
}

// moveTo follows a connection. A target missing from the current flow
// is searched across the project (sub-flow call edges land in the
// callee flow) and the cursor's flow switches to the owner.
func (w *Walker) moveTo(conn *model.Connection) {
	if fl, err := w.flow(w.selectedFlowID); err == nil {
		if _, err := fl.FindNode(conn.To); err == nil {
			w.selectedNodeID = conn.To
			return
		}
	}
	for _, f := range w.project.Flows {
		if _, err := f.FindNode(conn.To); err == nil {
			w.selectedFlowID = f.ID
			break
		}
	}
	w.selectedNodeID = conn.To
}

func (w *Walker) frameIndex(flowID, nodeID string) int {
	for i, fr := range w.subFlows {
		if fr.FlowID == flowID && fr.NodeID == nodeID {
			return i
		}
	}
	return -1
}

func (w *Walker) jumpFlowID(jt *model.JumpTarget) string {
	if jt.FlowID == "" {
		return w.selectedFlowID
	}
	return jt.FlowID
}

func (w *Walker) jumpTargetExists(jt *model.JumpTarget) bool {
	fl, err := w.flow(w.jumpFlowID(jt))
	if err != nil {
		return false
	}
	_, err = fl.FindNode(jt.NodeID)
	return err == nil
}

func (w *Walker) selectedFlow() (*model.Flow, error) {
	return w.flow(w.selectedFlowID)
}

func (w *Walker) flow(id string) (*model.Flow, error) {
	for _, f := range w.project.Flows {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, model.ErrFlowNotFound
}

func (w *Walker) node(flowID, nodeID string) (*model.Node, error) {
	fl, err := w.flow(flowID)
	if err != nil {
		return nil, err
	}
	return fl.FindNode(nodeID)
}

// CurrentNode returns the node under the cursor.
func (w *Walker) CurrentNode() (*model.Node, error) {
	if w.selectedNodeID == "" || w.selectedNodeID == TheEnd {
		return nil, model.ErrNodeNotFound
	}
	return w.node(w.selectedFlowID, w.selectedNodeID)
}

// SubFlowDepth reports how many calls are pending on the sub-flow stack.
func (w *Walker) SubFlowDepth() int { return len(w.subFlows) }
