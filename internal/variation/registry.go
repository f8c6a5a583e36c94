// Package variation pre-extracts "[[ TYPE a|b|c ]]" blocks from element
// text at load time and holds each block's persistent rotation state
// (§4.2). The extraction regex and block grammar are shared with
// internal/template so that the i-th block an element's text renders
// always consults the i-th Variation record, regardless of how many
// times the text is subsequently rendered (testable property 5).
package variation

import (
	"regexp"
	"strings"
	"sync"

	"github.com/narrativeflow/storyflow/pkg/model"
)

// blockPattern matches "[[ ... ]]" blocks, in the teacher's
// regexp.MustCompile-at-package-scope idiom (internal/application/template.templatePattern).
var blockPattern = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// Registry holds every project element's pre-extracted Variation blocks,
// keyed by element ID, and serves the next rotated value for each block
// as the templater renders it.
type Registry struct {
	mu    sync.Mutex
	byKey map[key]*model.Variation
}

type key struct {
	elementID string
	index     int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byKey: make(map[key]*model.Variation)}
}

// Build scans every element's main-locale text and records its
// variation blocks. Build is additive and only (re)populates an empty
// registry, matching Runtime.load's "rebuilds variations if empty" rule.
func (r *Registry) Build(project *model.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.byKey) > 0 {
		return
	}

	for _, f := range project.Flows {
		for _, n := range f.Nodes {
			for _, e := range n.Elements {
				text := mainLocaleText(e, project.MainLocale)
				for i, block := range ParseBlocks(text) {
					r.byKey[key{e.ID, i}] = &model.Variation{
						ElementID:     e.ID,
						Index:         i,
						Type:          block.Type,
						InitialValues: block.Options,
						Remaining:     append([]string(nil), block.Options...),
					}
				}
			}
		}
	}
}

// Reset restores every variation's Remaining pool to its InitialValues,
// used by Runtime.Load to reseed state on a fresh story run without
// discarding the parsed block structure (rebuilding the registry would
// also work, but Reset avoids re-scanning every element's text).
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.byKey {
		v.Remaining = append([]string(nil), v.InitialValues...)
	}
}

// Len reports how many variation blocks are registered, used to decide
// whether Build should run.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}

// Next returns the rotated value for the i-th variation block of the
// given element, applying the block's own persistence rule; pick makes
// the RND/SRND selection. The bool is false when no record exists for
// (elementID, index).
func (r *Registry) Next(elementID string, index int, pick Picker) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.byKey[key{elementID, index}]
	if !ok {
		return "", false
	}

	switch v.Type {
	case model.VariationList:
		return nextList(v), true
	case model.VariationLoop:
		return nextLoop(v), true
	case model.VariationRandom:
		return nextRandom(v, pick), true
	case model.VariationSmartRandom:
		return nextSmartRandom(v, pick), true
	default:
		return "", false
	}
}

// Picker selects an index in [0, n) for RND/SRND; implementations wrap a
// seeded PRNG so tests can be deterministic (§9 "Randomness").
type Picker func(n int) int

func nextList(v *model.Variation) string {
	if len(v.Remaining) == 0 {
		// Sticky final: emit the last authored option forever.
		if len(v.InitialValues) == 0 {
			return ""
		}
		return v.InitialValues[len(v.InitialValues)-1]
	}
	head := v.Remaining[0]
	v.Remaining = v.Remaining[1:]
	return head
}

func nextLoop(v *model.Variation) string {
	if len(v.Remaining) == 0 {
		v.Remaining = append([]string(nil), v.InitialValues...)
	}
	if len(v.Remaining) == 0 {
		return ""
	}
	head := v.Remaining[0]
	v.Remaining = v.Remaining[1:]
	if len(v.Remaining) == 0 {
		v.Remaining = append([]string(nil), v.InitialValues...)
	}
	return head
}

func nextRandom(v *model.Variation, pick Picker) string {
	if len(v.InitialValues) == 0 {
		return ""
	}
	return v.InitialValues[pick(len(v.InitialValues))]
}

func nextSmartRandom(v *model.Variation, pick Picker) string {
	if len(v.Remaining) == 0 {
		v.Remaining = append([]string(nil), v.InitialValues...)
	}
	if len(v.Remaining) == 0 {
		return ""
	}
	i := pick(len(v.Remaining))
	chosen := v.Remaining[i]
	v.Remaining = append(v.Remaining[:i], v.Remaining[i+1:]...)
	return chosen
}

func mainLocaleText(e *model.NodeElement, mainLocale string) string {
	for _, c := range e.LocalizedContents {
		if c.LocaleCode == mainLocale {
			return c.Text
		}
	}
	return ""
}

// Block is one parsed "[[TYPE a|b|c]]" variation block.
type Block struct {
	Type    model.VariationType
	Options []string
}

// ParseBlocks extracts every "[[ ... ]]" block from text, left to right,
// applying §4.2's normalization: strip brackets, trim, collapse " | "
// to "|", split on whitespace for type/remainder, split remainder on "|"
// for options.
func ParseBlocks(text string) []Block {
	matches := blockPattern.FindAllStringSubmatch(text, -1)
	blocks := make([]Block, 0, len(matches))
	for _, m := range matches {
		if b, ok := parseBlock(m[1]); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// ReplaceBlocks rewrites every "[[ ... ]]" block in text, left to
// right, with the value fn produces for the block. index is the block's
// 0-based position among the recognized blocks (the ones ParseBlocks
// returns), or -1 for a block that does not parse. The templater uses
// it so that the i-th rendered block always pairs with the i-th
// Variation record extracted by Build from the same pattern.
func ReplaceBlocks(text string, fn func(index int, b Block, ok bool) string) string {
	i := -1
	return blockPattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := match[2 : len(match)-2]
		b, ok := parseBlock(inner)
		if !ok {
			return fn(-1, b, false)
		}
		i++
		return fn(i, b, true)
	})
}

func parseBlock(inner string) (Block, bool) {
	normalized := strings.TrimSpace(inner)
	normalized = strings.ReplaceAll(normalized, " | ", "|")
	fields := strings.Fields(normalized)
	if len(fields) == 0 {
		return Block{}, false
	}
	typ := model.VariationType(fields[0])
	switch typ {
	case model.VariationList, model.VariationLoop, model.VariationRandom, model.VariationSmartRandom:
	default:
		return Block{}, false
	}

	remainder := strings.Join(fields[1:], " ")
	remainder = strings.ReplaceAll(remainder, " | ", "|")
	var options []string
	for _, opt := range strings.Split(remainder, "|") {
		options = append(options, strings.TrimSpace(opt))
	}

	return Block{Type: typ, Options: options}, true
}
