package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrativeflow/storyflow/pkg/model"
)

func elem(contents ...*model.LocalizedContent) *model.NodeElement {
	return &model.NodeElement{ID: "e1", LocalizedContents: contents}
}

func TestResolve_DirectHit(t *testing.T) {
	e := elem(&model.LocalizedContent{LocaleCode: "en", Text: "hello"})
	c, fb := Resolve(e, true, "en", "en")
	require.NotNil(t, c)
	assert.Equal(t, "hello", c.Text)
	assert.False(t, fb)
}

func TestResolve_FallbackToMainWhenMissing(t *testing.T) {
	e := elem(&model.LocalizedContent{LocaleCode: "en", Text: "hello"})
	c, fb := Resolve(e, true, "fr", "en")
	require.NotNil(t, c)
	assert.Equal(t, "hello", c.Text)
	assert.True(t, fb)
	assert.True(t, c.NotTranslated)
}

func TestResolve_FallbackWhenEmpty(t *testing.T) {
	e := elem(
		&model.LocalizedContent{LocaleCode: "fr", Text: ""},
		&model.LocalizedContent{LocaleCode: "en", Text: "hello"},
	)
	c, fb := Resolve(e, true, "fr", "en")
	require.NotNil(t, c)
	assert.Equal(t, "hello", c.Text)
	assert.True(t, fb)
}

func TestResolve_NonTranslatableForcesMainLocale(t *testing.T) {
	e := elem(
		&model.LocalizedContent{LocaleCode: "fr", Text: "bonjour"},
		&model.LocalizedContent{LocaleCode: "en", Text: "hello"},
	)
	c, _ := Resolve(e, false, "fr", "en")
	require.NotNil(t, c)
	assert.Equal(t, "hello", c.Text)
}

func TestResolve_NoContentAnywhere(t *testing.T) {
	e := elem()
	c, fb := Resolve(e, true, "en", "en")
	assert.Nil(t, c)
	assert.False(t, fb)
}

func TestResolveLabel(t *testing.T) {
	l := &model.Label{Key: "k", LocalizedContents: []*model.LocalizedContent{
		{LocaleCode: "en", Text: "Continue"},
	}}
	c, fb := ResolveLabel(l, "fr", "en")
	require.NotNil(t, c)
	assert.Equal(t, "Continue", c.Text)
	assert.True(t, fb)
}
