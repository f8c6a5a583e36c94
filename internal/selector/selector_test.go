package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrativeflow/storyflow/pkg/model"
)

func newNode(cycle model.CycleType, ids ...string) *model.Node {
	n := &model.Node{ID: "n1", Type: model.NodeText, CycleType: cycle}
	for _, id := range ids {
		n.Elements = append(n.Elements, &model.NodeElement{ID: id, NodeID: n.ID})
	}
	return n
}

func first(n int) int { return 0 }

func TestSelect_List_StickyLast(t *testing.T) {
	n := newNode(model.CycleList, "a", "b")

	var got []string
	for i := 0; i < 4; i++ {
		got = append(got, Select(n, first).ID)
	}
	assert.Equal(t, []string{"a", "b", "b", "b"}, got)
}

func TestSelect_Loop_WrapsAround_S3(t *testing.T) {
	n := newNode(model.CycleLoop, "a", "b")

	var got []string
	for i := 0; i < 4; i++ {
		got = append(got, Select(n, first).ID)
	}
	assert.Equal(t, []string{"a", "b", "a", "b"}, got)
}

func TestSelect_Random_UsesPick(t *testing.T) {
	n := newNode(model.CycleRandom, "a", "b", "c")
	el := Select(n, func(cnt int) int { return cnt - 1 })
	assert.Equal(t, "c", el.ID)
	assert.False(t, el.Visited, "Random does not mark visitation")
}

func TestSelect_SmartRandom_NoRepeatUntilReset(t *testing.T) {
	n := newNode(model.CycleSmartRandom, "a", "b", "c")

	seen := map[string]int{}
	for i := 0; i < 6; i++ {
		el := Select(n, first)
		require.NotNil(t, el)
		seen[el.ID]++
	}
	assert.Equal(t, map[string]int{"a": 2, "b": 2, "c": 2}, seen)
}

func TestSelect_Empty(t *testing.T) {
	n := newNode(model.CycleList)
	assert.Nil(t, Select(n, first))
}
