package model

import (
	"encoding/json"
	"errors"
)

// The project source format uses underscore-prefixed field names
// (_apiVersion, _flows, ...). The wire structs below isolate that quirk
// so the public Project keeps idiomatic Go field names; Project's
// (Un)MarshalJSON maps between the two shapes.

type wireProject struct {
	APIVersion      string           `json:"_apiVersion"`
	Name            string           `json:"_name,omitempty"`
	Locale          string           `json:"_locale,omitempty"`
	MainLocale      *wireCode        `json:"_mainLocale"`
	AvailableLocale []wireLocaleDesc `json:"_availableLocale,omitempty"`
	FlowGroups      []wireFlowGroup  `json:"_flowGroups,omitempty"`
	Flows           []wireFlow       `json:"_flows"`
	Actors          []wireActor      `json:"_actors,omitempty"`
	Variables       []wireVariable   `json:"_variables,omitempty"`
	Labels          []wireLabel      `json:"_labels,omitempty"`
	Metadata        []wireMetadata   `json:"_metadata,omitempty"`
}

type wireCode struct {
	Code string `json:"_code"`
}

type wireLocaleDesc struct {
	Code string `json:"_code"`
	Desc string `json:"_desc,omitempty"`
}

type wireFlowGroup struct {
	ID      string   `json:"_id"`
	Name    string   `json:"_name,omitempty"`
	FlowIDs []string `json:"_flowIds,omitempty"`
}

type wireFlow struct {
	ID    string     `json:"_id"`
	Name  string     `json:"_name,omitempty"`
	Slug  string     `json:"_slug,omitempty"`
	Nodes []wireNode `json:"_nodes,omitempty"`
}

type wireNode struct {
	ID           string           `json:"_id"`
	Type         string           `json:"_type"`
	ActorID      string           `json:"_actorId,omitempty"`
	CycleType    string           `json:"_cycleType,omitempty"`
	Translatable *bool            `json:"_translatable,omitempty"`
	Metadata     []string         `json:"_metadata,omitempty"`
	Elements     []wireElement    `json:"_elements,omitempty"`
	Connections  []wireConnection `json:"_connections,omitempty"`
	JumpTo       *wireJump        `json:"_jumpTo,omitempty"`
	Permalink    string           `json:"_permalink,omitempty"`
	Image        string           `json:"_image,omitempty"`
	Header       *wireElement     `json:"_header,omitempty"`
}

type wireJump struct {
	FlowID string `json:"_flowId"`
	NodeID string `json:"_nodeId"`
}

type wireElement struct {
	ID                string        `json:"_id"`
	NodeID            string        `json:"_nodeId,omitempty"`
	Type              string        `json:"_type,omitempty"`
	LocalizedContents []wireContent `json:"_localizedContents,omitempty"`
}

type wireContent struct {
	LocaleCode string `json:"_localeCode"`
	Text       string `json:"_text"`
}

type wireConnection struct {
	To            string `json:"_to"`
	Type          string `json:"_type,omitempty"`
	NodeElementID string `json:"_nodeElementId,omitempty"`
}

type wireActor struct {
	ID         string `json:"_id"`
	UID        string `json:"_uid,omitempty"`
	Name       string `json:"_name,omitempty"`
	IsNarrator bool   `json:"_isNarrator,omitempty"`
}

type wireVariable struct {
	Key   string `json:"_key"`
	Value any    `json:"_value"`
	Type  string `json:"_type,omitempty"`
}

type wireLabel struct {
	Key               string        `json:"_key"`
	LocalizedContents []wireContent `json:"_localizedContents,omitempty"`
}

type wireMetadata struct {
	ID     string          `json:"_id"`
	UID    string          `json:"_uid,omitempty"`
	Name   string          `json:"_name,omitempty"`
	Icon   string          `json:"_icon,omitempty"`
	Values []wireMetaValue `json:"_values,omitempty"`
}

type wireMetaValue struct {
	ID         string `json:"_id"`
	UID        string `json:"_uid,omitempty"`
	Value      string `json:"_value,omitempty"`
	Icon       string `json:"_icon,omitempty"`
	MetadataID string `json:"_metadataId,omitempty"`
}

// ParseProject decodes a project source document. Bad JSON surfaces as
// LoadError{Malformed}; a missing main locale as LoadError{MissingField}.
// An API version mismatch is the caller's warning to emit, never a
// parse failure.
func ParseProject(data []byte) (*Project, error) {
	p := &Project{}
	if err := json.Unmarshal(data, p); err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &LoadError{Kind: Malformed, Err: err}
	}
	return p, nil
}

// UnmarshalJSON decodes the underscore-named wire shape.
func (p *Project) UnmarshalJSON(data []byte) error {
	var w wireProject
	if err := json.Unmarshal(data, &w); err != nil {
		return &LoadError{Kind: Malformed, Err: err}
	}
	if w.MainLocale == nil || w.MainLocale.Code == "" {
		return &LoadError{Kind: MissingField, Field: "_mainLocale"}
	}

	p.APIVersion = w.APIVersion
	p.Name = w.Name
	p.Locale = w.Locale
	p.MainLocale = w.MainLocale.Code
	if p.Locale == "" {
		p.Locale = p.MainLocale
	}

	p.AvailableLocales = nil
	for _, l := range w.AvailableLocale {
		p.AvailableLocales = append(p.AvailableLocales, LocaleInfo{Code: l.Code, Desc: l.Desc})
	}
	p.FlowGroups = nil
	for _, g := range w.FlowGroups {
		p.FlowGroups = append(p.FlowGroups, &FlowGroup{ID: g.ID, Name: g.Name, FlowIDs: g.FlowIDs})
	}
	p.Flows = nil
	for _, f := range w.Flows {
		p.Flows = append(p.Flows, decodeFlow(f))
	}
	p.Actors = nil
	for _, a := range w.Actors {
		p.Actors = append(p.Actors, &Actor{ID: a.ID, UID: a.UID, Name: a.Name, IsNarrator: a.IsNarrator})
	}
	p.Variables = nil
	for _, v := range w.Variables {
		p.Variables = append(p.Variables, &Variable{Key: v.Key, Value: stringifyValue(v.Value), Type: VariableType(v.Type)})
	}
	p.Labels = nil
	for _, l := range w.Labels {
		p.Labels = append(p.Labels, &Label{Key: l.Key, LocalizedContents: decodeContents(l.LocalizedContents)})
	}
	p.Metadata = nil
	for _, m := range w.Metadata {
		md := &Metadata{ID: m.ID, UID: m.UID, Name: m.Name, Icon: m.Icon}
		for _, v := range m.Values {
			md.Values = append(md.Values, &MetadataValue{ID: v.ID, UID: v.UID, Value: v.Value, Icon: v.Icon, MetadataID: v.MetadataID})
		}
		p.Metadata = append(p.Metadata, md)
	}
	return nil
}

func decodeFlow(w wireFlow) *Flow {
	f := &Flow{ID: w.ID, Name: w.Name, Slug: w.Slug}
	for _, n := range w.Nodes {
		f.Nodes = append(f.Nodes, decodeNode(n))
	}
	return f
}

func decodeNode(w wireNode) *Node {
	n := &Node{
		ID:           w.ID,
		Permalink:    w.Permalink,
		Type:         NodeType(w.Type),
		ActorID:      w.ActorID,
		MetadataIDs:  w.Metadata,
		CycleType:    CycleType(w.CycleType),
		Translatable: w.Translatable == nil || *w.Translatable,
		Image:        w.Image,
	}
	if w.JumpTo != nil {
		n.JumpTo = &JumpTarget{FlowID: w.JumpTo.FlowID, NodeID: w.JumpTo.NodeID}
	}
	if w.Header != nil {
		n.Header = decodeElement(*w.Header, n.ID)
	}
	for _, e := range w.Elements {
		n.Elements = append(n.Elements, decodeElement(e, n.ID))
	}
	for _, c := range w.Connections {
		typ := ConnectionType(c.Type)
		if typ == "" {
			typ = ConnDefault
		}
		n.Connections = append(n.Connections, &Connection{
			FromNodeID:    n.ID,
			To:            c.To,
			NodeElementID: c.NodeElementID,
			Type:          typ,
		})
	}
	return n
}

func decodeElement(w wireElement, nodeID string) *NodeElement {
	if w.NodeID == "" {
		w.NodeID = nodeID
	}
	return &NodeElement{
		ID:                w.ID,
		NodeID:            w.NodeID,
		Type:              w.Type,
		LocalizedContents: decodeContents(w.LocalizedContents),
	}
}

func decodeContents(ws []wireContent) []*LocalizedContent {
	var out []*LocalizedContent
	for _, c := range ws {
		out = append(out, &LocalizedContent{LocaleCode: c.LocaleCode, Text: c.Text})
	}
	return out
}

func stringifyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		// json numbers arrive as float64; re-encode without float noise
		b, _ := json.Marshal(t)
		return string(b)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// MarshalJSON encodes the project back into its wire shape, so a
// loaded project round-trips through the same document format it was
// authored in.
func (p *Project) MarshalJSON() ([]byte, error) {
	w := wireProject{
		APIVersion: p.APIVersion,
		Name:       p.Name,
		Locale:     p.Locale,
		MainLocale: &wireCode{Code: p.MainLocale},
	}
	for _, l := range p.AvailableLocales {
		w.AvailableLocale = append(w.AvailableLocale, wireLocaleDesc{Code: l.Code, Desc: l.Desc})
	}
	for _, g := range p.FlowGroups {
		w.FlowGroups = append(w.FlowGroups, wireFlowGroup{ID: g.ID, Name: g.Name, FlowIDs: g.FlowIDs})
	}
	for _, f := range p.Flows {
		w.Flows = append(w.Flows, encodeFlow(f))
	}
	for _, a := range p.Actors {
		w.Actors = append(w.Actors, wireActor{ID: a.ID, UID: a.UID, Name: a.Name, IsNarrator: a.IsNarrator})
	}
	for _, v := range p.Variables {
		w.Variables = append(w.Variables, wireVariable{Key: v.Key, Value: v.Value, Type: string(v.Type)})
	}
	for _, l := range p.Labels {
		w.Labels = append(w.Labels, wireLabel{Key: l.Key, LocalizedContents: encodeContents(l.LocalizedContents)})
	}
	for _, m := range p.Metadata {
		md := wireMetadata{ID: m.ID, UID: m.UID, Name: m.Name, Icon: m.Icon}
		for _, v := range m.Values {
			md.Values = append(md.Values, wireMetaValue{ID: v.ID, UID: v.UID, Value: v.Value, Icon: v.Icon, MetadataID: v.MetadataID})
		}
		w.Metadata = append(w.Metadata, md)
	}
	return json.Marshal(w)
}

func encodeFlow(f *Flow) wireFlow {
	w := wireFlow{ID: f.ID, Name: f.Name, Slug: f.Slug}
	for _, n := range f.Nodes {
		w.Nodes = append(w.Nodes, encodeNode(n))
	}
	return w
}

func encodeNode(n *Node) wireNode {
	translatable := n.Translatable
	w := wireNode{
		ID:           n.ID,
		Type:         string(n.Type),
		ActorID:      n.ActorID,
		CycleType:    string(n.CycleType),
		Translatable: &translatable,
		Metadata:     n.MetadataIDs,
		Permalink:    n.Permalink,
		Image:        n.Image,
	}
	if n.JumpTo != nil {
		w.JumpTo = &wireJump{FlowID: n.JumpTo.FlowID, NodeID: n.JumpTo.NodeID}
	}
	if n.Header != nil {
		h := encodeElement(n.Header)
		w.Header = &h
	}
	for _, e := range n.Elements {
		w.Elements = append(w.Elements, encodeElement(e))
	}
	for _, c := range n.Connections {
		wc := wireConnection{To: c.To, NodeElementID: c.NodeElementID}
		if c.Type != ConnDefault {
			wc.Type = string(c.Type)
		}
		w.Connections = append(w.Connections, wc)
	}
	return w
}

func encodeElement(e *NodeElement) wireElement {
	return wireElement{
		ID:                e.ID,
		NodeID:            e.NodeID,
		Type:              e.Type,
		LocalizedContents: encodeContents(e.LocalizedContents),
	}
}

func encodeContents(cs []*LocalizedContent) []wireContent {
	var out []wireContent
	for _, c := range cs {
		out = append(out, wireContent{LocaleCode: c.LocaleCode, Text: c.Text})
	}
	return out
}
