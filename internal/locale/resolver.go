// Package locale implements the localization fallback described in §4.1:
// a requested locale that has no content, or whose containing node is
// marked non-translatable, falls back to the project's main locale.
package locale

import "github.com/narrativeflow/storyflow/pkg/model"

// Resolve returns the best LocalizedContent for an element given the
// requested locale and the project's main locale. translatable is the
// node.Translatable flag of the element's containing node. The returned
// bool reports whether the result required falling back to mainLocale.
func Resolve(element *model.NodeElement, translatable bool, requested, mainLocale string) (*model.LocalizedContent, bool) {
	locale := requested

	// A non-translatable node always renders in the main locale, unless
	// the caller already asked for the main locale.
	if !translatable && mainLocale != requested {
		locale = mainLocale
	}

	if c := findContent(element.LocalizedContents, locale); c != nil {
		return c, false
	}

	if locale != mainLocale {
		if c := findContent(element.LocalizedContents, mainLocale); c != nil {
			fallback := *c
			fallback.NotTranslated = true
			return &fallback, true
		}
	}

	return nil, false
}

// ResolveLabel applies the identical fallback algorithm to a Label, which
// shares NodeElement's LocalizedContent shape but has no translatable flag.
func ResolveLabel(label *model.Label, requested, mainLocale string) (*model.LocalizedContent, bool) {
	if c := findContent(label.LocalizedContents, requested); c != nil {
		return c, false
	}
	if requested != mainLocale {
		if c := findContent(label.LocalizedContents, mainLocale); c != nil {
			fallback := *c
			fallback.NotTranslated = true
			return &fallback, true
		}
	}
	return nil, false
}

func findContent(contents []*model.LocalizedContent, locale string) *model.LocalizedContent {
	for _, c := range contents {
		if c.LocaleCode == locale && c.Text != "" {
			return c
		}
	}
	return nil
}
