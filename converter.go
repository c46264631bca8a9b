package contentsync

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms HTML content into Markdown.
	// Returns EINVALID for empty input.
	Convert(html string) (string, error)
}
