package storyflow

import (
	"github.com/narrativeflow/storyflow/internal/locale"
	"github.com/narrativeflow/storyflow/internal/selector"
	"github.com/narrativeflow/storyflow/pkg/model"
)

// GetParsedText renders an element's display text. A nil element means
// "the current node": its element is chosen through the node's cycle
// policy, advancing visitation the same way the authoring editor's
// preview does. forceEval realizes assignment blocks inside Choice
// elements and should stay false for pre-display rendering.
func (r *Runtime) GetParsedText(el *model.NodeElement, forceEval bool) (string, error) {
	if r.walker == nil {
		return "", ErrNotLoaded
	}

	var node *model.Node
	if el == nil {
		n, err := r.walker.CurrentNode()
		if err != nil {
			return "", err
		}
		node = n
		if el = selector.Select(n, r.pick); el == nil {
			return "", nil
		}
	} else {
		n, err := r.GetNode(el.NodeID, "")
		if err != nil {
			return "", err
		}
		node = n
	}
	return r.templater.Render(el, node, forceEval, r.locale), nil
}

// GetOriginalText returns an element's authored text without advancing
// any runtime state. cleaned strips authoring markers; resolveVars
// substitutes current values of simple "{$x}" blocks. loc empty means
// the runtime's locale.
func (r *Runtime) GetOriginalText(el *model.NodeElement, cleaned, resolveVars bool, loc string) (string, error) {
	if r.walker == nil {
		return "", ErrNotLoaded
	}
	node, err := r.GetNode(el.NodeID, "")
	if err != nil {
		return "", err
	}
	if loc == "" {
		loc = r.locale
	}
	return r.templater.Original(el, node, cleaned, resolveVars, loc), nil
}

// GetAvailableChoices returns the presentable elements of a Choice
// node (the current node when nodeID is empty): unvisited, non-empty
// renders, with [+] fallbacks surfacing only once everything regular
// is spent.
func (r *Runtime) GetAvailableChoices(nodeID string) ([]*model.NodeElement, error) {
	if r.walker == nil {
		return nil, ErrNotLoaded
	}
	node, err := r.GetNode(nodeID, "")
	if err != nil {
		return nil, err
	}
	return r.walker.AvailableChoices(node), nil
}

// GetNode resolves a node. Empty nodeID means the current node; empty
// flowID searches the whole project through the load-time index.
func (r *Runtime) GetNode(nodeID, flowID string) (*model.Node, error) {
	if r.walker == nil {
		return nil, ErrNotLoaded
	}
	if nodeID == "" {
		return r.walker.CurrentNode()
	}
	if flowID == "" {
		flowID = r.nodeOwner[nodeID]
		if flowID == "" {
			return nil, model.ErrNodeNotFound
		}
	}
	fl, err := r.findFlowByID(flowID)
	if err != nil {
		return nil, err
	}
	return fl.FindNode(nodeID)
}

// NodeExists reports whether a node resolves, in the named flow or
// anywhere in the project.
func (r *Runtime) NodeExists(nodeID, flowID string) bool {
	n, err := r.GetNode(nodeID, flowID)
	return err == nil && n != nil
}

// GetFlow resolves a flow by ID, name or slug.
func (r *Runtime) GetFlow(idOrNameOrSlug string) (*model.Flow, error) {
	if r.project == nil {
		return nil, ErrNotLoaded
	}
	return r.project.FindFlow(idOrNameOrSlug)
}

// GetSelectedFlow returns the flow the cursor sits in.
func (r *Runtime) GetSelectedFlow() (*model.Flow, error) {
	if r.walker == nil {
		return nil, ErrNotLoaded
	}
	return r.findFlowByID(r.walker.SelectedFlowID())
}

// GetFlows lists the project's flows in authored order.
func (r *Runtime) GetFlows() []*model.Flow {
	if r.project == nil {
		return nil
	}
	return r.project.Flows
}

// GetNodeActor returns the actor attributed to a node (the current
// node when nodeID is empty), or ErrActorNotFound for narratorless nodes.
func (r *Runtime) GetNodeActor(nodeID string) (*model.Actor, error) {
	node, err := r.GetNode(nodeID, "")
	if err != nil {
		return nil, err
	}
	if node.ActorID == "" {
		return nil, model.ErrActorNotFound
	}
	return r.project.FindActor(node.ActorID)
}

// GetActorByUID resolves an actor by its stable author-assigned UID.
func (r *Runtime) GetActorByUID(uid string) (*model.Actor, error) {
	if r.project == nil {
		return nil, ErrNotLoaded
	}
	return r.project.FindActorByUID(uid)
}

// GetLabels lists the project's labels.
func (r *Runtime) GetLabels() []*model.Label {
	if r.project == nil {
		return nil
	}
	return r.project.Labels
}

// GetLabel returns a label's text for a locale (the runtime's when
// empty), falling back to the main locale like element content does.
func (r *Runtime) GetLabel(key, loc string) (string, error) {
	if r.project == nil {
		return "", ErrNotLoaded
	}
	label, err := r.project.FindLabel(key)
	if err != nil {
		return "", err
	}
	if loc == "" {
		loc = r.locale
	}
	content, _ := locale.ResolveLabel(label, loc, r.project.MainLocale)
	if content == nil {
		return "", nil
	}
	return content.Text, nil
}

// GetNodeMetadata returns the metadata values a node is annotated with.
func (r *Runtime) GetNodeMetadata(nodeID string) ([]*model.MetadataValue, error) {
	node, err := r.GetNode(nodeID, "")
	if err != nil {
		return nil, err
	}
	var out []*model.MetadataValue
	for _, id := range node.MetadataIDs {
		if v, _, err := r.project.FindMetadataValue(id); err == nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// GetNodeMetaByMetaUID returns the node's value for the metadata group
// with the given UID, or ErrMetadataNotFound when the node carries none.
func (r *Runtime) GetNodeMetaByMetaUID(uid, nodeID string) (*model.MetadataValue, error) {
	node, err := r.GetNode(nodeID, "")
	if err != nil {
		return nil, err
	}
	for _, id := range node.MetadataIDs {
		v, group, err := r.project.FindMetadataValue(id)
		if err != nil {
			continue
		}
		if group.UID == uid {
			return v, nil
		}
	}
	return nil, model.ErrMetadataNotFound
}

// GetLinkingNodes returns the nodes whose connections point at the
// given node (incoming edges), from the load-time reverse index.
func (r *Runtime) GetLinkingNodes(nodeID string) ([]*model.Node, error) {
	node, err := r.GetNode(nodeID, "")
	if err != nil {
		return nil, err
	}
	return r.incoming[node.ID], nil
}

// GetLinksToNodes returns the nodes the given node's own connections
// point at (outgoing edges).
func (r *Runtime) GetLinksToNodes(nodeID string) ([]*model.Node, error) {
	node, err := r.GetNode(nodeID, "")
	if err != nil {
		return nil, err
	}
	var out []*model.Node
	for _, c := range node.Connections {
		if target, err := r.GetNode(c.To, ""); err == nil {
			out = append(out, target)
		}
	}
	return out, nil
}

// GetNodesByType lists every node of the given type across all flows.
func (r *Runtime) GetNodesByType(t model.NodeType) []*model.Node {
	if r.project == nil {
		return nil
	}
	var out []*model.Node
	for _, f := range r.project.Flows {
		for _, n := range f.Nodes {
			if n.Type == t {
				out = append(out, n)
			}
		}
	}
	return out
}

// GetNodeByPermalink resolves a node by its author-assigned permalink.
func (r *Runtime) GetNodeByPermalink(permalink string) (*model.Node, error) {
	if r.project == nil {
		return nil, ErrNotLoaded
	}
	if n, ok := r.byPermalink[permalink]; ok {
		return n, nil
	}
	return nil, model.ErrNodeNotFound
}

func (r *Runtime) findFlowByID(id string) (*model.Flow, error) {
	for _, f := range r.project.Flows {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, model.ErrFlowNotFound
}
