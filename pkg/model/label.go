package model

// Label is a named, localized text fragment reusable from the templater
// (e.g. shared UI strings), resolved through the same localization
// resolver as NodeElement content.
type Label struct {
	Key               string
	LocalizedContents []*LocalizedContent
}
