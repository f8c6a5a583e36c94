package model

// Metadata is a named, author-defined tag group (e.g. "Mood", "Chapter")
// whose values nodes can be annotated with.
type Metadata struct {
	ID     string
	UID    string
	Name   string
	Icon   string
	Values []*MetadataValue
}

// MetadataValue is one concrete tag within a Metadata group.
type MetadataValue struct {
	ID         string
	UID        string
	Value      string
	Icon       string
	MetadataID string
}
