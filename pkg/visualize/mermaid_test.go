package visualize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrativeflow/storyflow/pkg/model"
)

func sampleFlow() *model.Flow {
	return &model.Flow{
		ID:   "f1",
		Name: "Morning",
		Nodes: []*model.Node{
			{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{
				{To: "greet", Type: model.ConnDefault},
			}},
			{ID: "greet", Type: model.NodeText,
				Elements: []*model.NodeElement{{
					ID: "ge",
					LocalizedContents: []*model.LocalizedContent{
						{LocaleCode: "en", Text: "Good morning!"},
					},
				}},
				Connections: []*model.Connection{
					{To: "ask", Type: model.ConnDefault},
				}},
			{ID: "ask", Type: model.NodeChoice,
				Connections: []*model.Connection{
					{To: "done", NodeElementID: "c1", Type: model.ConnDefault},
					{To: "done", Type: model.ConnFailCondition},
				}},
			{ID: "done", Type: model.NodeText},
		},
	}
}

func TestMermaidRenderer_Render(t *testing.T) {
	out, err := NewMermaidRenderer().Render(sampleFlow(), nil)
	require.NoError(t, err)

	assert.Contains(t, out, "flowchart TD")
	assert.Contains(t, out, "start([start (Start)])")
	assert.Contains(t, out, "ask{ask (Choice)}")
	assert.Contains(t, out, "Good morning!")
	assert.Contains(t, out, "start --> greet")
	assert.Contains(t, out, "ask -->|c1| done")
	assert.Contains(t, out, "ask -.->|fail| done")
}

func TestMermaidRenderer_Compact(t *testing.T) {
	out, err := NewMermaidRenderer().Render(sampleFlow(), &RenderOptions{
		Direction:   "LR",
		CompactMode: true,
	})
	require.NoError(t, err)

	assert.Contains(t, out, "flowchart LR")
	assert.Contains(t, out, "greet[greet]")
	assert.NotContains(t, out, "Good morning!")
	assert.Contains(t, out, "ask --> done", "edge labels off by default in a zero-valued options struct")
}

func TestMermaidRenderer_NilFlow(t *testing.T) {
	_, err := NewMermaidRenderer().Render(nil, nil)
	require.Error(t, err)
}

func TestRenderFlow_UnsupportedFormat(t *testing.T) {
	_, err := RenderFlow(sampleFlow(), "dot", nil)
	require.Error(t, err)
}

func TestMermaidRenderer_JumpEdge(t *testing.T) {
	fl := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "jump", Type: model.NodeJumpToNode,
			JumpTo: &model.JumpTarget{FlowID: "f2", NodeID: "target"}},
	}}
	out, err := NewMermaidRenderer().Render(fl, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "jump -.-> target")
}
