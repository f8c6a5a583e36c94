// Package visualize renders loaded flows as diagrams for debugging and
// documentation. The renderer never participates in walking; it only
// reads the authored graph.
package visualize

import (
	"fmt"
	"strings"

	"github.com/narrativeflow/storyflow/pkg/model"
)

// RenderOptions controls diagram output.
type RenderOptions struct {
	// Direction is the mermaid flow direction: "TD" (default) or "LR".
	Direction string
	// CompactMode labels nodes with their ID only, dropping type and
	// text previews.
	CompactMode bool
	// ShowEdgeLabels annotates edges with their connection type or the
	// element they belong to.
	ShowEdgeLabels bool
}

// DefaultRenderOptions returns the options used when nil is passed.
func DefaultRenderOptions() *RenderOptions {
	return &RenderOptions{
		Direction:      "TD",
		ShowEdgeLabels: true,
	}
}

// Renderer renders one flow into a textual diagram format.
type Renderer interface {
	Render(flow *model.Flow, opts *RenderOptions) (string, error)
	Format() string
}

// MermaidRenderer renders flows as mermaid flowcharts.
type MermaidRenderer struct{}

// NewMermaidRenderer creates a new mermaid renderer.
func NewMermaidRenderer() *MermaidRenderer {
	return &MermaidRenderer{}
}

// Format returns the format identifier.
func (r *MermaidRenderer) Format() string {
	return "mermaid"
}

// Render converts a flow into mermaid flowchart syntax. Node shapes
// follow type: stadium for Start, rhombus for Choice/Condition,
// subroutine for SubFlow, asymmetric for JumpToNode, rectangle
// otherwise.
func (r *MermaidRenderer) Render(flow *model.Flow, opts *RenderOptions) (string, error) {
	if flow == nil {
		return "", fmt.Errorf("flow is nil")
	}
	if opts == nil {
		opts = DefaultRenderOptions()
	}
	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}

	var sb strings.Builder
	sb.WriteString("flowchart " + direction + "\n")

	for _, node := range flow.Nodes {
		sb.WriteString("    " + r.nodeShape(node, opts) + "\n")
	}
	for _, node := range flow.Nodes {
		for _, c := range node.Connections {
			sb.WriteString("    " + r.edge(node, c, opts) + "\n")
		}
		if node.Type == model.NodeJumpToNode && node.JumpTo != nil {
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", node.ID, node.JumpTo.NodeID))
		}
	}
	return sb.String(), nil
}

func (r *MermaidRenderer) nodeShape(node *model.Node, opts *RenderOptions) string {
	label := r.nodeLabel(node, opts)
	switch node.Type {
	case model.NodeStart:
		return fmt.Sprintf("%s([%s])", node.ID, label)
	case model.NodeChoice, model.NodeCondition:
		return fmt.Sprintf("%s{%s}", node.ID, label)
	case model.NodeSubFlow:
		return fmt.Sprintf("%s[[%s]]", node.ID, label)
	case model.NodeJumpToNode:
		return fmt.Sprintf("%s>%s]", node.ID, label)
	default:
		return fmt.Sprintf("%s[%s]", node.ID, label)
	}
}

func (r *MermaidRenderer) nodeLabel(node *model.Node, opts *RenderOptions) string {
	if opts.CompactMode {
		return node.ID
	}
	label := node.ID + " (" + string(node.Type) + ")"
	if snippet := firstText(node); snippet != "" {
		label += "<br/>" + sanitize(truncate(snippet, 32))
	}
	return label
}

func (r *MermaidRenderer) edge(from *model.Node, c *model.Connection, opts *RenderOptions) string {
	arrow := "-->"
	if c.Type == model.ConnFailCondition {
		arrow = "-.->"
	}
	if !opts.ShowEdgeLabels {
		return fmt.Sprintf("%s %s %s", from.ID, arrow, c.To)
	}
	label := ""
	switch {
	case c.Type == model.ConnFailCondition:
		label = "fail"
	case c.Type == model.ConnSubFlow:
		label = "call"
	case c.NodeElementID != "":
		label = c.NodeElementID
	}
	if label == "" {
		return fmt.Sprintf("%s %s %s", from.ID, arrow, c.To)
	}
	return fmt.Sprintf("%s %s|%s| %s", from.ID, arrow, sanitize(label), c.To)
}

func firstText(node *model.Node) string {
	if len(node.Elements) == 0 {
		return ""
	}
	for _, c := range node.Elements[0].LocalizedContents {
		if c.Text != "" {
			return c.Text
		}
	}
	return ""
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// sanitize strips the characters that break mermaid labels.
func sanitize(s string) string {
	replacer := strings.NewReplacer(
		`"`, "'",
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		"|", "/",
		"\n", " ",
	)
	return replacer.Replace(s)
}
