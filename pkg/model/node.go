package model

// NodeType classifies a Node and determines both which connection is
// taken and whether the walker emits the node to the host or passes
// through it silently.
type NodeType string

const (
	NodeStart         NodeType = "Start"
	NodeText          NodeType = "Text"
	NodeNote          NodeType = "Note"
	NodeChoice        NodeType = "Choice"
	NodeVariables     NodeType = "Variables"
	NodeCondition     NodeType = "Condition"
	NodeFailCondition NodeType = "FailCondition"
	NodeRandom        NodeType = "Random"
	NodeSequence      NodeType = "Sequence"
	NodeJumpToNode    NodeType = "JumpToNode"
	NodeLayout        NodeType = "Layout"
	NodeSubFlow       NodeType = "SubFlow"
	NodeLabel         NodeType = "Label"
)

// Emits reports whether a node of this type is surfaced to the host via
// Emitted(node), as opposed to being passed through silently by the walker.
func (t NodeType) Emits() bool {
	switch t {
	case NodeStart, NodeNote, NodeSequence, NodeRandom, NodeVariables,
		NodeLayout, NodeSubFlow, NodeJumpToNode, NodeCondition:
		return false
	default:
		return true
	}
}

// CycleType is the element-selection policy governing a node's elements.
type CycleType string

const (
	CycleList        CycleType = "List"
	CycleLoop        CycleType = "Loop"
	CycleRandom      CycleType = "Random"
	CycleSmartRandom CycleType = "SmartRandom"
	CycleNone        CycleType = "None"
)

// ConnectionType distinguishes the role an outgoing edge plays for nodes
// that fan out to more than one kind of successor (Choice/Condition/
// Sequence elements, SubFlow calls, and fail-paths).
type ConnectionType string

const (
	ConnDefault       ConnectionType = "default"
	ConnSubFlow       ConnectionType = "SubFlow"
	ConnFailCondition ConnectionType = "FailCondition"
)

// JumpTarget names a cross-flow destination for a JumpToNode node.
type JumpTarget struct {
	FlowID string
	NodeID string
}

// Node is a vertex of a Flow. Its Type determines both how the walker
// dispatches it and which of its fields are meaningful.
type Node struct {
	ID        string
	Permalink string

	Type NodeType

	ActorID      string
	MetadataIDs  []string
	Elements     []*NodeElement
	Connections  []*Connection
	CycleType    CycleType
	Translatable bool
	JumpTo       *JumpTarget
	Image        string
	Header       *NodeElement // Choice node prompt element, if any

	// PreviousNodeID is runtime-only bookkeeping set by the walker as it
	// transitions into this node; it is not part of the authored graph.
	PreviousNodeID string
}

// NodeElement is a child of a Node carrying localized text: one per
// alternative for Choice, one per variant for Text/Sequence.
type NodeElement struct {
	ID     string
	NodeID string
	Type   string

	LocalizedContents []*LocalizedContent

	// Runtime-only flags, reset by Runtime.Load.
	Visited               bool
	JustOnce              bool
	IfNoMore              bool
	WasHiddenBecauseEmpty bool
}

// LocalizedContent is one locale's text for an element or a label.
type LocalizedContent struct {
	LocaleCode string
	Text       string

	// NotTranslated is set by the localization resolver when it had to
	// fall back to the main locale.
	NotTranslated bool
}

// Connection is a directed edge from a node to a target node, optionally
// bound to one of the source node's elements (Choice/Condition/Sequence)
// and optionally typed (SubFlow call edge, fail-condition edge).
type Connection struct {
	FromNodeID    string
	To            string
	NodeElementID string
	Type          ConnectionType
}

// FindNode returns the node with the given ID, or ErrNodeNotFound.
func (f *Flow) FindNode(id string) (*Node, error) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, ErrNodeNotFound
}

// StartNode returns the flow's single Start node, per invariant 4.
func (f *Flow) StartNode() (*Node, error) {
	for _, n := range f.Nodes {
		if n.Type == NodeStart {
			return n, nil
		}
	}
	return nil, ErrStartNodeMissing
}

// OutgoingFailConnection returns the node's FailCondition-typed
// connection, if any (invariant 3: at most one per Condition/Sequence node).
func (n *Node) OutgoingFailConnection() *Connection {
	for _, c := range n.Connections {
		if c.Type == ConnFailCondition {
			return c
		}
	}
	return nil
}

// ElementByID returns the node's element with the given ID, or nil.
func (n *Node) ElementByID(id string) *NodeElement {
	for _, e := range n.Elements {
		if e.ID == id {
			return e
		}
	}
	return nil
}
