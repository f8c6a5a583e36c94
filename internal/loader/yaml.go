// Package loader converts hand-written YAML project documents into the
// in-memory project model. YAML is an authoring convenience: the JSON
// wire format stays authoritative, and a YAML document describes the
// same entities with friendlier spelling (plain field names, locale
// maps instead of content lists).
package loader

import (
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/narrativeflow/storyflow/pkg/model"
)

type yamlProject struct {
	APIVersion string            `yaml:"apiVersion"`
	Name       string            `yaml:"name"`
	Locale     string            `yaml:"locale"`
	MainLocale string            `yaml:"mainLocale"`
	Locales    []yamlLocale      `yaml:"availableLocales"`
	FlowGroups []yamlFlowGroup   `yaml:"flowGroups"`
	Flows      []yamlFlow        `yaml:"flows"`
	Actors     []yamlActor       `yaml:"actors"`
	Variables  []yamlVariable    `yaml:"variables"`
	Labels     []yamlLabel       `yaml:"labels"`
	Metadata   []yamlMetadata    `yaml:"metadata"`
}

type yamlLocale struct {
	Code string `yaml:"code"`
	Desc string `yaml:"desc"`
}

type yamlFlowGroup struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	FlowIDs []string `yaml:"flowIds"`
}

type yamlFlow struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Slug  string     `yaml:"slug"`
	Nodes []yamlNode `yaml:"nodes"`
}

type yamlNode struct {
	ID           string            `yaml:"id"`
	Type         string            `yaml:"type"`
	ActorID      string            `yaml:"actorId"`
	CycleType    string            `yaml:"cycleType"`
	Translatable *bool             `yaml:"translatable"`
	Metadata     []string          `yaml:"metadata"`
	Elements     []yamlElement     `yaml:"elements"`
	Connections  []yamlConnection  `yaml:"connections"`
	JumpTo       *yamlJump         `yaml:"jumpTo"`
	Permalink    string            `yaml:"permalink"`
	Image        string            `yaml:"image"`
}

type yamlJump struct {
	FlowID string `yaml:"flowId"`
	NodeID string `yaml:"nodeId"`
}

type yamlElement struct {
	ID   string            `yaml:"id"`
	Type string            `yaml:"type"`
	Text map[string]string `yaml:"text"` // locale code -> text
}

type yamlConnection struct {
	To            string `yaml:"to"`
	Type          string `yaml:"type"`
	NodeElementID string `yaml:"elementId"`
}

type yamlActor struct {
	ID         string `yaml:"id"`
	UID        string `yaml:"uid"`
	Name       string `yaml:"name"`
	IsNarrator bool   `yaml:"isNarrator"`
}

type yamlVariable struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
	Type  string `yaml:"type"`
}

type yamlLabel struct {
	Key  string            `yaml:"key"`
	Text map[string]string `yaml:"text"`
}

type yamlMetadata struct {
	ID     string          `yaml:"id"`
	UID    string          `yaml:"uid"`
	Name   string          `yaml:"name"`
	Icon   string          `yaml:"icon"`
	Values []yamlMetaValue `yaml:"values"`
}

type yamlMetaValue struct {
	ID    string `yaml:"id"`
	UID   string `yaml:"uid"`
	Value string `yaml:"value"`
	Icon  string `yaml:"icon"`
}

// LoadProjectYAML parses a YAML project document.
func LoadProjectYAML(data []byte) (*model.Project, error) {
	var y yamlProject
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, &model.LoadError{Kind: model.Malformed, Err: err}
	}
	if y.MainLocale == "" {
		return nil, &model.LoadError{Kind: model.MissingField, Field: "mainLocale"}
	}

	p := &model.Project{
		APIVersion: y.APIVersion,
		Name:       y.Name,
		Locale:     y.Locale,
		MainLocale: y.MainLocale,
	}
	if p.Locale == "" {
		p.Locale = p.MainLocale
	}
	if p.APIVersion == "" {
		p.APIVersion = model.CurrentAPIVersion
	}

	for _, l := range y.Locales {
		p.AvailableLocales = append(p.AvailableLocales, model.LocaleInfo{Code: l.Code, Desc: l.Desc})
	}
	for _, g := range y.FlowGroups {
		p.FlowGroups = append(p.FlowGroups, &model.FlowGroup{ID: g.ID, Name: g.Name, FlowIDs: g.FlowIDs})
	}
	for _, f := range y.Flows {
		p.Flows = append(p.Flows, convertFlow(f))
	}
	for _, a := range y.Actors {
		p.Actors = append(p.Actors, &model.Actor{ID: a.ID, UID: a.UID, Name: a.Name, IsNarrator: a.IsNarrator})
	}
	for _, v := range y.Variables {
		p.Variables = append(p.Variables, &model.Variable{Key: v.Key, Value: v.Value, Type: model.VariableType(v.Type)})
	}
	for _, l := range y.Labels {
		p.Labels = append(p.Labels, &model.Label{Key: l.Key, LocalizedContents: convertContents(l.Text)})
	}
	for _, m := range y.Metadata {
		md := &model.Metadata{ID: m.ID, UID: m.UID, Name: m.Name, Icon: m.Icon}
		for _, v := range m.Values {
			md.Values = append(md.Values, &model.MetadataValue{ID: v.ID, UID: v.UID, Value: v.Value, Icon: v.Icon, MetadataID: m.ID})
		}
		p.Metadata = append(p.Metadata, md)
	}
	return p, nil
}

func convertFlow(y yamlFlow) *model.Flow {
	f := &model.Flow{ID: y.ID, Name: y.Name, Slug: y.Slug}
	for _, n := range y.Nodes {
		f.Nodes = append(f.Nodes, convertNode(n))
	}
	return f
}

func convertNode(y yamlNode) *model.Node {
	n := &model.Node{
		ID:           y.ID,
		Type:         model.NodeType(y.Type),
		ActorID:      y.ActorID,
		CycleType:    model.CycleType(y.CycleType),
		Translatable: y.Translatable == nil || *y.Translatable,
		MetadataIDs:  y.Metadata,
		Permalink:    y.Permalink,
		Image:        y.Image,
	}
	if y.JumpTo != nil {
		n.JumpTo = &model.JumpTarget{FlowID: y.JumpTo.FlowID, NodeID: y.JumpTo.NodeID}
	}
	for _, e := range y.Elements {
		n.Elements = append(n.Elements, &model.NodeElement{
			ID:                e.ID,
			NodeID:            n.ID,
			Type:              e.Type,
			LocalizedContents: convertContents(e.Text),
		})
	}
	for _, c := range y.Connections {
		typ := model.ConnectionType(c.Type)
		if typ == "" {
			typ = model.ConnDefault
		}
		n.Connections = append(n.Connections, &model.Connection{
			FromNodeID:    n.ID,
			To:            c.To,
			NodeElementID: c.NodeElementID,
			Type:          typ,
		})
	}
	return n
}

func convertContents(byLocale map[string]string) []*model.LocalizedContent {
	codes := make([]string, 0, len(byLocale))
	for code := range byLocale {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var out []*model.LocalizedContent
	for _, code := range codes {
		out = append(out, &model.LocalizedContent{LocaleCode: code, Text: byLocale[code]})
	}
	return out
}
