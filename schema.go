package contentsync

import "strings"

// SchemaVersion is the version of DefaultSchema. Bump it whenever the default
// field list changes so clones record which list produced them.
const SchemaVersion = "1"

// pathWildcard expands to every element of an array, in order.
const pathWildcard = "*"

// Schema declares which node settings hold translatable text. The collector
// and the injector both walk documents through the same Schema, which keeps
// the positional contract between them in one place.
type Schema struct {
	// Version identifies the field list. It is recorded on cloned content.
	Version string

	// Fields maps a node type to an ordered list of settings paths.
	// Path segments are separated by dots; "*" iterates an array.
	// For example "tabs.*.tab_title" visits the title of every tab.
	Fields map[string][]string
}

// Validate returns an error if the schema is unusable.
func (s *Schema) Validate() error {
	if s.Version == "" {
		return Errorf(EINVALID, "schema version required")
	}
	for nodeType, paths := range s.Fields {
		if nodeType == "" {
			return Errorf(EINVALID, "schema node type required")
		}
		for _, path := range paths {
			segments := strings.Split(path, ".")
			if segments[0] == pathWildcard {
				return Errorf(EINVALID, "schema path %q for %q must start with a settings key", path, nodeType)
			}
			for _, seg := range segments {
				if seg == "" {
					return Errorf(EINVALID, "schema path %q for %q has an empty segment", path, nodeType)
				}
			}
		}
	}
	return nil
}

// paths returns the split settings paths for a node type.
func (s *Schema) paths(nodeType string) [][]string {
	fields := s.Fields[nodeType]
	if len(fields) == 0 {
		return nil
	}
	out := make([][]string, len(fields))
	for i, f := range fields {
		out[i] = strings.Split(f, ".")
	}
	return out
}

// DefaultSchema returns the field list for Elementor widgets. URLs, IDs,
// numbers, colors and CSS never appear in it.
func DefaultSchema() *Schema {
	return &Schema{
		Version: SchemaVersion,
		Fields: map[string][]string{
			"heading":           {"title"},
			"text-editor":       {"editor"},
			"button":            {"text"},
			"image":             {"caption"},
			"icon-box":          {"title_text", "description_text"},
			"image-box":         {"title_text", "description_text"},
			"call-to-action":    {"title", "description", "button"},
			"testimonial":       {"testimonial_content", "testimonial_name", "testimonial_job"},
			"alert":             {"alert_title", "alert_description"},
			"counter":           {"prefix", "suffix", "title"},
			"progress":          {"title", "inner_text"},
			"animated-headline": {"before_text", "highlighted_text", "rotating_text", "after_text"},
			"tabs":              {"tabs.*.tab_title", "tabs.*.tab_content"},
			"accordion":         {"tabs.*.tab_title", "tabs.*.tab_content"},
			"toggle":            {"tabs.*.tab_title", "tabs.*.tab_content"},
			"icon-list":         {"icon_list.*.text"},
			"price-table": {
				"heading", "sub_heading", "period",
				"features_list.*.item_text",
				"button_text", "footer_additional_info",
			},
		},
	}
}
