package contentsync

// InjectStats describes how an injection pass went.
type InjectStats struct {
	// Sites is the number of translatable values found in the document.
	Sites int

	// Supplied is the number of replacements passed in.
	Supplied int

	// Replaced is the number of sites that received a replacement.
	Replaced int
}

// Complete reports whether every site was replaced.
func (s InjectStats) Complete() bool {
	return s.Replaced == s.Sites
}

// Mismatch reports whether the replacement count differed from the site
// count. A short list leaves trailing sites in the source language.
func (s InjectStats) Mismatch() bool {
	return s.Sites != s.Supplied
}

// Collect returns the translatable text of doc in traversal order: depth-first,
// parent before children, paths in schema order. Values are returned verbatim
// and empty strings are kept, since the injector relies on positions.
// A nil schema means DefaultSchema.
func Collect(doc *Document, schema *Schema) []string {
	fragments := []string{}
	if doc == nil {
		return fragments
	}
	walkDocument(doc, orDefault(schema), func(value string) (string, bool) {
		fragments = append(fragments, value)
		return "", false
	})
	return fragments
}

// CollectJSON parses data and collects its fragments. Malformed documents
// yield an empty slice so callers can fall back to plain-text translation.
func CollectJSON(data []byte, schema *Schema) []string {
	doc, err := ParseDocument(data)
	if err != nil {
		return []string{}
	}
	return Collect(doc, schema)
}

// Inject returns a copy of doc with the translatable values replaced, in
// traversal order, by replacements. When replacements run out the remaining
// sites keep their original text; surplus replacements are ignored. doc is
// never modified.
func Inject(doc *Document, schema *Schema, replacements []string) (*Document, InjectStats) {
	stats := InjectStats{Supplied: len(replacements)}
	if doc == nil {
		return nil, stats
	}

	out := doc.Clone()
	walkDocument(out, orDefault(schema), func(value string) (string, bool) {
		stats.Sites++
		if stats.Replaced >= len(replacements) {
			return "", false
		}
		r := replacements[stats.Replaced]
		stats.Replaced++
		return r, true
	})
	return out, stats
}

func orDefault(schema *Schema) *Schema {
	if schema == nil {
		return DefaultSchema()
	}
	return schema
}

// visitFunc is called for every translatable value. Returning true replaces
// the value with the returned string.
type visitFunc func(value string) (string, bool)

func walkDocument(doc *Document, schema *Schema, visit visitFunc) {
	for _, n := range doc.Nodes {
		walkNode(n, schema, visit)
	}
}

func walkNode(n *Node, schema *Schema, visit visitFunc) {
	if n == nil {
		return
	}
	if n.Settings != nil {
		for _, path := range schema.paths(n.Type()) {
			walkMap(n.Settings, path, visit)
		}
	}
	for _, child := range n.Elements {
		walkNode(child, schema, visit)
	}
}

func walkMap(m map[string]any, path []string, visit visitFunc) {
	key := path[0]
	value, ok := m[key]
	if !ok {
		return
	}
	if len(path) == 1 {
		if s, ok := value.(string); ok {
			if r, replace := visit(s); replace {
				m[key] = r
			}
		}
		return
	}
	walkValue(value, path[1:], visit)
}

func walkValue(value any, path []string, visit visitFunc) {
	if path[0] != pathWildcard {
		if m, ok := value.(map[string]any); ok {
			walkMap(m, path, visit)
		}
		return
	}

	items, ok := value.([]any)
	if !ok {
		return
	}
	for i, item := range items {
		if len(path) == 1 {
			if s, ok := item.(string); ok {
				if r, replace := visit(s); replace {
					items[i] = r
				}
			}
			continue
		}
		walkValue(item, path[1:], visit)
	}
}
