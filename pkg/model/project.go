package model

// CurrentAPIVersion is the wire API version this runtime was built against.
// A mismatch on load is a warning, never a load failure (§6, §7).
const CurrentAPIVersion = "1.4"

// Project is the typed in-memory representation of a loaded story-flow
// project: flows, nodes, elements, actors, variables, labels, metadata
// and locales. It is treated as read-only by the runtime once loaded;
// the only fields the runtime mutates in place are the runtime-only
// flags on NodeElement and Node.PreviousNodeID (see Runtime.Load
// resetting them).
type Project struct {
	APIVersion       string
	Name             string
	Locale           string
	MainLocale       string
	AvailableLocales []LocaleInfo
	FlowGroups       []*FlowGroup
	Flows            []*Flow
	Actors           []*Actor
	Variables        []*Variable
	Labels           []*Label
	Metadata         []*Metadata
}

// LocaleInfo names an available locale and its human-readable description.
type LocaleInfo struct {
	Code string
	Desc string
}

// FlowGroup orders a set of flows under a named group (e.g. chapters).
type FlowGroup struct {
	ID      string
	Name    string
	FlowIDs []string
}

// Flow is a named directed subgraph of nodes with exactly one Start node.
type Flow struct {
	ID    string
	Name  string
	Slug  string
	Nodes []*Node
}

// FindFlow resolves a flow by ID, name, or slug — the three ways the
// host API's get_flow/start/load accept a flow reference.
func (p *Project) FindFlow(idOrNameOrSlug string) (*Flow, error) {
	for _, f := range p.Flows {
		if f.ID == idOrNameOrSlug || f.Name == idOrNameOrSlug || f.Slug == idOrNameOrSlug {
			return f, nil
		}
	}
	return nil, ErrFlowNotFound
}

// FirstFlow resolves the default flow: the first flow of the first flow
// group, or the project's first flow if there are no flow groups.
func (p *Project) FirstFlow() (*Flow, error) {
	if len(p.FlowGroups) > 0 && len(p.FlowGroups[0].FlowIDs) > 0 {
		return p.FindFlow(p.FlowGroups[0].FlowIDs[0])
	}
	if len(p.Flows) > 0 {
		return p.Flows[0], nil
	}
	return nil, ErrFlowNotFound
}

// FindActor resolves an actor by its internal ID.
func (p *Project) FindActor(id string) (*Actor, error) {
	for _, a := range p.Actors {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrActorNotFound
}

// FindActorByUID resolves an actor by its stable author-assigned UID.
func (p *Project) FindActorByUID(uid string) (*Actor, error) {
	for _, a := range p.Actors {
		if a.UID == uid {
			return a, nil
		}
	}
	return nil, ErrActorNotFound
}

// FindLabel resolves a label by key.
func (p *Project) FindLabel(key string) (*Label, error) {
	for _, l := range p.Labels {
		if l.Key == key {
			return l, nil
		}
	}
	return nil, ErrLabelNotFound
}

// FindMetadata resolves a metadata group by ID.
func (p *Project) FindMetadata(id string) (*Metadata, error) {
	for _, m := range p.Metadata {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, ErrMetadataNotFound
}

// FindMetadataValue resolves a single metadata value by its ID across all
// metadata groups.
func (p *Project) FindMetadataValue(id string) (*MetadataValue, *Metadata, error) {
	for _, m := range p.Metadata {
		for _, v := range m.Values {
			if v.ID == id {
				return v, m, nil
			}
		}
	}
	return nil, nil, ErrMetadataNotFound
}

// Validate checks the structural invariants of §3: every connection
// targets a node in the same flow (SubFlow-typed call edges may target a
// node in any flow), node IDs are unique within a flow, Choice/Condition/
// Sequence connections that name an element
// reference real elements, at most one FailCondition connection per
// Condition/Sequence node, and each flow has exactly one Start node.
func (p *Project) Validate() error {
	var errs ValidationErrors

	allNodeIDs := make(map[string]struct{})
	for _, f := range p.Flows {
		for _, n := range f.Nodes {
			allNodeIDs[n.ID] = struct{}{}
		}
	}

	for _, f := range p.Flows {
		starts := 0
		nodeIDs := make(map[string]*Node, len(f.Nodes))
		for _, n := range f.Nodes {
			if n.Type == NodeStart {
				starts++
			}
			if _, dup := nodeIDs[n.ID]; dup {
				errs = append(errs, ValidationError{Field: "flow " + f.ID, Message: "duplicate node ID: " + n.ID})
				continue
			}
			nodeIDs[n.ID] = n
		}
		if starts != 1 {
			errs = append(errs, ValidationError{Field: "flow " + f.ID, Message: "flow must contain exactly one Start node"})
		}

		for _, n := range f.Nodes {
			failCount := 0
			for _, c := range n.Connections {
				if c.Type == ConnSubFlow {
					// Sub-flow call edges are the one sanctioned way to
					// cross a flow boundary.
					if _, ok := allNodeIDs[c.To]; !ok {
						errs = append(errs, ValidationError{Field: "node " + n.ID, Message: "sub-flow call targets unknown node: " + c.To})
					}
				} else if _, ok := nodeIDs[c.To]; !ok {
					errs = append(errs, ValidationError{Field: "node " + n.ID, Message: "connection targets node outside flow: " + c.To})
				}
				if c.Type == ConnFailCondition {
					failCount++
				}
				if needsElementBinding(n.Type) && c.Type != ConnFailCondition && c.NodeElementID != "" {
					if n.ElementByID(c.NodeElementID) == nil {
						errs = append(errs, ValidationError{Field: "node " + n.ID, Message: "connection references unknown element: " + c.NodeElementID})
					}
				}
			}
			if failCount > 1 {
				errs = append(errs, ValidationError{Field: "node " + n.ID, Message: "at most one FailCondition connection is allowed"})
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func needsElementBinding(t NodeType) bool {
	return t == NodeChoice || t == NodeCondition || t == NodeSequence
}
