package model

// Actor is a speaker a node's text is attributed to.
type Actor struct {
	ID         string
	UID        string
	Name       string
	IsNarrator bool
}
