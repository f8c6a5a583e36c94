package loader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrativeflow/storyflow/pkg/model"
)

const sampleYAML = `
apiVersion: "1.4"
name: "Good Morning"
mainLocale: en
availableLocales:
  - code: en
    desc: English
flowGroups:
  - id: g1
    name: Day
    flowIds: [f1]
flows:
  - id: f1
    name: Morning
    slug: morning
    nodes:
      - id: start
        type: Start
        connections:
          - to: greet
      - id: greet
        type: Text
        actorId: a1
        permalink: greeting
        elements:
          - id: ge
            text:
              en: "Good morning, {$name}!"
              ru: "Доброе утро, {$name}!"
actors:
  - id: a1
    uid: narrator
    name: Narrator
    isNarrator: true
variables:
  - key: name
    value: Homer
    type: string
labels:
  - key: continue
    text:
      en: Continue
metadata:
  - id: m1
    uid: mood
    name: Mood
    values:
      - id: mv1
        uid: calm
        value: Calm
`

func TestLoadProjectYAML(t *testing.T) {
	p, err := LoadProjectYAML([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "1.4", p.APIVersion)
	assert.Equal(t, "en", p.MainLocale)
	assert.Equal(t, "en", p.Locale, "locale defaults to the main locale")

	require.Len(t, p.Flows, 1)
	fl := p.Flows[0]
	require.Len(t, fl.Nodes, 2)

	greet := fl.Nodes[1]
	assert.Equal(t, model.NodeText, greet.Type)
	assert.True(t, greet.Translatable, "translatable defaults to true")
	require.Len(t, greet.Elements, 1)
	require.Len(t, greet.Elements[0].LocalizedContents, 2)
	assert.Equal(t, "en", greet.Elements[0].LocalizedContents[0].LocaleCode)
	assert.Equal(t, "greet", greet.Elements[0].NodeID)

	require.Len(t, p.Metadata, 1)
	assert.Equal(t, "m1", p.Metadata[0].Values[0].MetadataID, "back-reference filled from the group")

	require.NoError(t, p.Validate())
}

func TestLoadProjectYAML_MissingMainLocale(t *testing.T) {
	_, err := LoadProjectYAML([]byte("name: X\nflows: []\n"))
	require.Error(t, err)

	var le *model.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, model.MissingField, le.Kind)
}

func TestLoadProjectYAML_Malformed(t *testing.T) {
	_, err := LoadProjectYAML([]byte("flows: [unclosed"))
	require.Error(t, err)

	var le *model.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, model.Malformed, le.Kind)
}
