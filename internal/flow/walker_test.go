package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrativeflow/storyflow/internal/expreval"
	"github.com/narrativeflow/storyflow/internal/template"
	"github.com/narrativeflow/storyflow/internal/variation"
	"github.com/narrativeflow/storyflow/internal/varstore"
	"github.com/narrativeflow/storyflow/pkg/model"
)

// harness bundles a walker with the stores behind it so tests can seed
// variables and inspect effects.
type harness struct {
	walker  *Walker
	globals *varstore.Store
	locals  *varstore.Store
}

func newHarness(t *testing.T, project *model.Project) *harness {
	t.Helper()
	globals, locals := varstore.New(), varstore.New()
	registry := variation.New()
	registry.Build(project)
	eval := expreval.New(64)
	pick := func(n int) int { return 0 }
	tpl := template.New(registry, eval, globals, locals, project.MainLocale, pick)
	w := New(Deps{
		Project:   project,
		Templater: tpl,
		Evaluator: eval,
		Globals:   globals,
		Locals:    locals,
		Pick:      pick,
		MaxDepth:  100,
		Locale:    project.MainLocale,
	})
	return &harness{walker: w, globals: globals, locals: locals}
}

func element(id, text string) *model.NodeElement {
	return &model.NodeElement{
		ID: id,
		LocalizedContents: []*model.LocalizedContent{
			{LocaleCode: "en", Text: text},
		},
	}
}

func conn(to string) *model.Connection {
	return &model.Connection{To: to, Type: model.ConnDefault}
}

func elConn(to, elementID string) *model.Connection {
	return &model.Connection{To: to, NodeElementID: elementID, Type: model.ConnDefault}
}

func failConn(to string) *model.Connection {
	return &model.Connection{To: to, Type: model.ConnFailCondition}
}

func project(flows ...*model.Flow) *model.Project {
	return &model.Project{MainLocale: "en", Locale: "en", Flows: flows}
}

func TestNext_VariablesThenText_S1(t *testing.T) {
	fl := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("vars")}},
		{ID: "vars", Type: model.NodeVariables, Translatable: true,
			Elements:    []*model.NodeElement{element("ve", "{$n = $n + 1}")},
			Connections: []*model.Connection{conn("text")}},
		{ID: "text", Type: model.NodeText, Translatable: true,
			Elements: []*model.NodeElement{element("te", "n={$n}")}},
	}}
	h := newHarness(t, project(fl))
	h.globals.Set("n", int64(0))
	require.NoError(t, h.walker.Start("", ""))

	out := h.walker.Next("")
	require.Equal(t, Emitted, out.Kind)
	assert.Equal(t, "text", out.Node.ID)

	v, _ := h.globals.Get("n")
	assert.EqualValues(t, 1, v, "Variables node applied its assignment while passing through")

	out = h.walker.Next("")
	assert.Equal(t, Ended, out.Kind)
	assert.True(t, h.walker.Ended())

	// The sentinel is terminal.
	assert.Equal(t, Ended, h.walker.Next("").Kind)
}

func TestNext_ConditionFailPath_S2(t *testing.T) {
	fl := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("cond")}},
		{ID: "cond", Type: model.NodeCondition, Translatable: true,
			Elements: []*model.NodeElement{element("ce", "{$n > 0}")},
			Connections: []*model.Connection{
				elConn("pos", "ce"),
				failConn("zero"),
			}},
		{ID: "pos", Type: model.NodeText, Translatable: true,
			Elements: []*model.NodeElement{element("pe", "positive")}},
		{ID: "zero", Type: model.NodeText, Translatable: true,
			Elements: []*model.NodeElement{element("ze", "zero")}},
	}}
	h := newHarness(t, project(fl))
	h.globals.Set("n", int64(0))
	require.NoError(t, h.walker.Start("", ""))

	out := h.walker.Next("")
	require.Equal(t, Emitted, out.Kind)
	assert.Equal(t, "zero", out.Node.ID)
}

func TestNext_ConditionTruthyElement(t *testing.T) {
	fl := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("cond")}},
		{ID: "cond", Type: model.NodeCondition, Translatable: true,
			Elements: []*model.NodeElement{
				element("c1", "{$n > 10}"),
				element("c2", "{$n > 0}"),
			},
			Connections: []*model.Connection{
				elConn("big", "c1"),
				elConn("small", "c2"),
				failConn("zero"),
			}},
		{ID: "big", Type: model.NodeText, Translatable: true, Elements: []*model.NodeElement{element("be", "big")}},
		{ID: "small", Type: model.NodeText, Translatable: true, Elements: []*model.NodeElement{element("se", "small")}},
		{ID: "zero", Type: model.NodeText, Translatable: true, Elements: []*model.NodeElement{element("ze", "zero")}},
	}}
	h := newHarness(t, project(fl))
	h.globals.Set("n", int64(5))
	require.NoError(t, h.walker.Start("", ""))

	out := h.walker.Next("")
	require.Equal(t, Emitted, out.Kind)
	assert.Equal(t, "small", out.Node.ID, "first truthy element in source order wins")
}

func TestNext_BadJump_S6(t *testing.T) {
	fl := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("jump")}},
		{ID: "jump", Type: model.NodeJumpToNode,
			JumpTo: &model.JumpTarget{FlowID: "missing", NodeID: "nowhere"}},
	}}
	h := newHarness(t, project(fl))
	require.NoError(t, h.walker.Start("", ""))

	out := h.walker.Next("")
	require.Equal(t, BadJump, out.Kind)
	require.NotNil(t, out.Node)
	assert.Equal(t, "jump", out.Node.ID)
	require.NotNil(t, out.Err)
	assert.Equal(t, BadJumpTarget, out.Err.Kind)

	// Cursor unchanged: the walker is parked on the offending node.
	assert.Equal(t, "jump", h.walker.SelectedNodeID())
	assert.Equal(t, "f1", h.walker.SelectedFlowID())
}

func TestNext_JumpToNode_CrossFlow(t *testing.T) {
	f1 := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("jump")}},
		{ID: "jump", Type: model.NodeJumpToNode,
			JumpTo: &model.JumpTarget{FlowID: "f2", NodeID: "t2"}},
	}}
	f2 := &model.Flow{ID: "f2", Nodes: []*model.Node{
		{ID: "start2", Type: model.NodeStart, Connections: []*model.Connection{conn("t2")}},
		{ID: "t2", Type: model.NodeText, Translatable: true,
			Elements: []*model.NodeElement{element("t2e", "landed")}},
	}}
	h := newHarness(t, project(f1, f2))
	require.NoError(t, h.walker.Start("", ""))

	out := h.walker.Next("")
	require.Equal(t, Emitted, out.Kind)
	assert.Equal(t, "t2", out.Node.ID)
	assert.Equal(t, "f2", h.walker.SelectedFlowID())
}

func TestNext_SubFlowCallAndReturn(t *testing.T) {
	caller := &model.Flow{ID: "main", Name: "main", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("call")}},
		{ID: "call", Type: model.NodeSubFlow, Connections: []*model.Connection{
			{To: "sub_start", Type: model.ConnSubFlow},
			conn("after"),
		}},
		{ID: "after", Type: model.NodeText, Translatable: true,
			Elements: []*model.NodeElement{element("ae", "back home")}},
	}}
	callee := &model.Flow{ID: "sub", Name: "sub", Nodes: []*model.Node{
		{ID: "sub_start", Type: model.NodeStart, Connections: []*model.Connection{conn("sub_text")}},
		{ID: "sub_text", Type: model.NodeText, Translatable: true,
			Elements: []*model.NodeElement{element("ste", "inside the call")}},
	}}
	h := newHarness(t, project(caller, callee))
	require.NoError(t, h.walker.Start("", ""))

	out := h.walker.Next("")
	require.Equal(t, Emitted, out.Kind)
	assert.Equal(t, "sub_text", out.Node.ID)
	assert.Equal(t, "sub", h.walker.SelectedFlowID())
	assert.Equal(t, 1, h.walker.SubFlowDepth())

	// The callee walks off its end: the next step resumes past the call.
	out = h.walker.Next("")
	require.Equal(t, Emitted, out.Kind)
	assert.Equal(t, "after", out.Node.ID)
	assert.Equal(t, "main", h.walker.SelectedFlowID())
	assert.Equal(t, 0, h.walker.SubFlowDepth())
}

func TestNext_ChoiceSelection(t *testing.T) {
	fl := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("choice")}},
		{ID: "choice", Type: model.NodeChoice, Translatable: true, CycleType: model.CycleNone,
			Elements: []*model.NodeElement{
				element("c1", "[-]Ask about the weather {$asked = true}"),
				element("c2", "Say goodbye"),
			},
			Connections: []*model.Connection{
				elConn("weather", "c1"),
				elConn("bye", "c2"),
			}},
		{ID: "weather", Type: model.NodeText, Translatable: true,
			Elements:    []*model.NodeElement{element("we", "It rains.")},
			Connections: []*model.Connection{conn("choice")}},
		{ID: "bye", Type: model.NodeText, Translatable: true,
			Elements: []*model.NodeElement{element("be", "Bye.")}},
	}}
	h := newHarness(t, project(fl))
	h.globals.Set("asked", false)
	require.NoError(t, h.walker.Start("", ""))

	out := h.walker.Next("")
	require.Equal(t, Emitted, out.Kind)
	require.Equal(t, "choice", out.Node.ID)

	choices := h.walker.AvailableChoices(out.Node)
	require.Len(t, choices, 2)

	// Take the one-shot choice: its assignment fires, it becomes visited.
	out = h.walker.Next("c1")
	require.Equal(t, Emitted, out.Kind)
	assert.Equal(t, "weather", out.Node.ID)

	asked, _ := h.globals.Get("asked")
	assert.Equal(t, true, asked)

	out = h.walker.Next("")
	require.Equal(t, Emitted, out.Kind)
	require.Equal(t, "choice", out.Node.ID)

	choices = h.walker.AvailableChoices(out.Node)
	require.Len(t, choices, 1)
	assert.Equal(t, "c2", choices[0].ID)
}

func TestAvailableChoices_FallbackElements_Property8(t *testing.T) {
	node := &model.Node{ID: "choice", Type: model.NodeChoice, Translatable: true,
		Elements: []*model.NodeElement{
			element("c1", "Regular option"),
			element("c2", "[+]Anything else?"),
		}}
	fl := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("choice")}},
		node,
	}}
	h := newHarness(t, project(fl))

	choices := h.walker.AvailableChoices(node)
	require.Len(t, choices, 1)
	assert.Equal(t, "c1", choices[0].ID, "fallback-only elements stay out of the normal list")

	node.Elements[0].Visited = true
	choices = h.walker.AvailableChoices(node)
	require.Len(t, choices, 1)
	assert.Equal(t, "c2", choices[0].ID, "exhaustion surfaces exactly the [+] elements")
}

func TestAvailableChoices_SelfHideAndUnhide(t *testing.T) {
	node := &model.Node{ID: "choice", Type: model.NodeChoice, Translatable: true,
		Elements: []*model.NodeElement{
			element("c1", `[IF $ready ? "Go" : ""]`),
			element("c2", "Wait"),
		}}
	fl := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("choice")}},
		node,
	}}
	h := newHarness(t, project(fl))
	h.globals.Set("ready", false)

	choices := h.walker.AvailableChoices(node)
	require.Len(t, choices, 1)
	assert.Equal(t, "c2", choices[0].ID)
	assert.True(t, node.Elements[0].WasHiddenBecauseEmpty)

	// The hidden element renders non-empty now: it un-hides.
	h.globals.Set("ready", true)
	choices = h.walker.AvailableChoices(node)
	require.Len(t, choices, 2)
}

func TestNext_ExhaustedChoiceFollowsFailConnection(t *testing.T) {
	fl := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("choice")}},
		{ID: "choice", Type: model.NodeChoice, Translatable: true,
			Elements: []*model.NodeElement{element("c1", "Gone")},
			Connections: []*model.Connection{
				elConn("opt", "c1"),
				failConn("done"),
			}},
		{ID: "opt", Type: model.NodeText, Translatable: true, Elements: []*model.NodeElement{element("oe", "chosen")}},
		{ID: "done", Type: model.NodeText, Translatable: true, Elements: []*model.NodeElement{element("de", "nothing left")}},
	}}
	h := newHarness(t, project(fl))
	fl.Nodes[1].Elements[0].Visited = true
	require.NoError(t, h.walker.Start("", ""))

	out := h.walker.Next("")
	require.Equal(t, Emitted, out.Kind)
	assert.Equal(t, "done", out.Node.ID)
}

func TestNext_SequenceListWithFailPath(t *testing.T) {
	fl := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("seq")}},
		{ID: "seq", Type: model.NodeSequence, CycleType: model.CycleList, Translatable: true,
			Elements: []*model.NodeElement{element("s1", "one"), element("s2", "two")},
			Connections: []*model.Connection{
				elConn("t1", "s1"),
				elConn("t2", "s2"),
				failConn("spent"),
			}},
		{ID: "t1", Type: model.NodeText, Translatable: true, Elements: []*model.NodeElement{element("t1e", "first")},
			Connections: []*model.Connection{conn("seq")}},
		{ID: "t2", Type: model.NodeText, Translatable: true, Elements: []*model.NodeElement{element("t2e", "second")},
			Connections: []*model.Connection{conn("seq")}},
		{ID: "spent", Type: model.NodeText, Translatable: true, Elements: []*model.NodeElement{element("sp", "no more")}},
	}}
	h := newHarness(t, project(fl))
	require.NoError(t, h.walker.Start("", ""))

	var emitted []string
	for i := 0; i < 3; i++ {
		out := h.walker.Next("")
		require.Equal(t, Emitted, out.Kind)
		emitted = append(emitted, out.Node.ID)
	}
	assert.Equal(t, []string{"t1", "t2", "spent"}, emitted)
}

func TestNext_RandomNodePicksConnection(t *testing.T) {
	fl := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("rnd")}},
		{ID: "rnd", Type: model.NodeRandom, Connections: []*model.Connection{conn("a"), conn("b")}},
		{ID: "a", Type: model.NodeText, Translatable: true, Elements: []*model.NodeElement{element("ae", "a")}},
		{ID: "b", Type: model.NodeText, Translatable: true, Elements: []*model.NodeElement{element("be", "b")}},
	}}
	h := newHarness(t, project(fl))
	require.NoError(t, h.walker.Start("", ""))

	// Deterministic pick(0): always the first connection.
	out := h.walker.Next("")
	require.Equal(t, Emitted, out.Kind)
	assert.Equal(t, "a", out.Node.ID)
}

func TestNext_DepthCapEndsTraversal(t *testing.T) {
	fl := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("n1")}},
		{ID: "n1", Type: model.NodeNote, Connections: []*model.Connection{conn("n2")}},
		{ID: "n2", Type: model.NodeNote, Connections: []*model.Connection{conn("n1")}},
	}}
	h := newHarness(t, project(fl))
	require.NoError(t, h.walker.Start("", ""))

	out := h.walker.Next("")
	require.Equal(t, Ended, out.Kind)
	require.NotNil(t, out.Err)
	assert.Equal(t, DepthExceeded, out.Err.Kind)
	assert.True(t, h.walker.Ended())
}

func TestRestart_ResetsCursorOnly(t *testing.T) {
	fl := &model.Flow{ID: "f1", Nodes: []*model.Node{
		{ID: "start", Type: model.NodeStart, Connections: []*model.Connection{conn("text")}},
		{ID: "text", Type: model.NodeText, Translatable: true,
			Elements: []*model.NodeElement{element("te", "hello")}},
	}}
	h := newHarness(t, project(fl))
	h.globals.Set("n", int64(7))
	require.NoError(t, h.walker.Start("", ""))

	out := h.walker.Next("")
	require.Equal(t, Emitted, out.Kind)
	require.Equal(t, Ended, h.walker.Next("").Kind)

	require.NoError(t, h.walker.Restart())
	assert.Equal(t, "start", h.walker.SelectedNodeID())

	v, _ := h.globals.Get("n")
	assert.EqualValues(t, 7, v, "restart leaves variables alone")

	out = h.walker.Next("")
	assert.Equal(t, Emitted, out.Kind)
}

func TestStart_NamedFlowAndNode(t *testing.T) {
	f1 := &model.Flow{ID: "f1", Name: "first", Slug: "first", Nodes: []*model.Node{
		{ID: "s1", Type: model.NodeStart},
	}}
	f2 := &model.Flow{ID: "f2", Name: "second", Slug: "second", Nodes: []*model.Node{
		{ID: "s2", Type: model.NodeStart, Connections: []*model.Connection{conn("t2")}},
		{ID: "t2", Type: model.NodeText, Translatable: true, Elements: []*model.NodeElement{element("e", "x")}},
	}}
	p := project(f1, f2)
	p.FlowGroups = []*model.FlowGroup{{ID: "g", FlowIDs: []string{"f1", "f2"}}}
	h := newHarness(t, p)

	require.NoError(t, h.walker.Start("", ""))
	assert.Equal(t, "f1", h.walker.SelectedFlowID(), "default flow is the group's first")

	require.NoError(t, h.walker.Start("t2", "second"))
	assert.Equal(t, "f2", h.walker.SelectedFlowID())
	assert.Equal(t, "t2", h.walker.SelectedNodeID())

	err := h.walker.Start("", "ghost")
	assert.ErrorIs(t, err, model.ErrFlowNotFound)
}
