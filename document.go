package contentsync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Node is one element of a page-builder document. Widgets carry their kind in
// WidgetType; sections, containers and columns only set ElType.
type Node struct {
	ID         string
	ElType     string
	WidgetType string
	Settings   map[string]any
	Elements   []*Node

	// extra holds keys the model does not interpret (isInner, editSettings,
	// non-object settings) so they survive a parse/marshal round trip.
	extra map[string]json.RawMessage
}

// Type returns the node kind used to look up translatable settings.
func (n *Node) Type() string {
	if n.ElType == "widget" && n.WidgetType != "" {
		return n.WidgetType
	}
	return n.ElType
}

// UnmarshalJSON decodes a node. Numbers inside settings are kept as
// json.Number so they marshal back byte for byte.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("node must be an object")
	}

	*n = Node{}
	for key, value := range raw {
		switch key {
		case "id":
			if err := json.Unmarshal(value, &n.ID); err != nil {
				return fmt.Errorf("node id: %w", err)
			}
		case "elType":
			if err := json.Unmarshal(value, &n.ElType); err != nil {
				return fmt.Errorf("node elType: %w", err)
			}
		case "widgetType":
			if err := json.Unmarshal(value, &n.WidgetType); err != nil {
				return fmt.Errorf("node widgetType: %w", err)
			}
		case "settings":
			settings, err := decodeSettings(value)
			if err != nil {
				return fmt.Errorf("node settings: %w", err)
			}
			if settings == nil {
				// PHP serializes an empty settings map as []; keep it as is.
				n.setExtra(key, value)
				continue
			}
			n.Settings = settings
		case "elements":
			var children []*Node
			if err := json.Unmarshal(value, &children); err != nil {
				return fmt.Errorf("node elements: %w", err)
			}
			if children == nil {
				children = []*Node{}
			}
			for _, child := range children {
				if child == nil {
					return fmt.Errorf("node elements: null element")
				}
			}
			n.Elements = children
		default:
			n.setExtra(key, value)
		}
	}
	return nil
}

func (n *Node) setExtra(key string, value json.RawMessage) {
	if n.extra == nil {
		n.extra = make(map[string]json.RawMessage)
	}
	n.extra[key] = append(json.RawMessage(nil), value...)
}

// decodeSettings returns nil without error when value is valid JSON but not an object.
func decodeSettings(value json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	m, _ := v.(map[string]any)
	return m, nil
}

// MarshalJSON encodes the node with known keys first and preserved keys after.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, value any) error {
		b, err := marshalValue(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(b)
		return nil
	}

	if n.ID != "" {
		if err := write("id", n.ID); err != nil {
			return nil, err
		}
	}
	if n.ElType != "" {
		if err := write("elType", n.ElType); err != nil {
			return nil, err
		}
	}
	if n.WidgetType != "" {
		if err := write("widgetType", n.WidgetType); err != nil {
			return nil, err
		}
	}
	if n.Settings != nil {
		if err := write("settings", n.Settings); err != nil {
			return nil, err
		}
	}
	if n.Elements != nil {
		if err := write("elements", n.Elements); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(n.extra))
	for k := range n.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, n.extra[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalValue encodes v without escaping HTML so editor markup stays readable.
func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Clone returns a deep copy of the node and its subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		ID:         n.ID,
		ElType:     n.ElType,
		WidgetType: n.WidgetType,
	}
	if n.Settings != nil {
		c.Settings = copyValue(n.Settings).(map[string]any)
	}
	if n.Elements != nil {
		c.Elements = make([]*Node, len(n.Elements))
		for i, child := range n.Elements {
			c.Elements[i] = child.Clone()
		}
	}
	if n.extra != nil {
		c.extra = make(map[string]json.RawMessage, len(n.extra))
		for k, v := range n.extra {
			c.extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[k] = copyValue(item)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, item := range v {
			s[i] = copyValue(item)
		}
		return s
	default:
		// Strings, json.Number, bools and nil are immutable.
		return v
	}
}

// Document is a page-builder document: an ordered list of root nodes.
type Document struct {
	Nodes []*Node
}

// ParseDocument decodes a structured document from its JSON form.
// Returns EINVALID if data is not a JSON array of node objects.
func ParseDocument(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, Errorf(EINVALID, "malformed document: empty input")
	}

	var nodes []*Node
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, Errorf(EINVALID, "malformed document: %v", err)
	}
	if nodes == nil {
		return nil, Errorf(EINVALID, "malformed document: null")
	}
	for i, n := range nodes {
		if n == nil {
			return nil, Errorf(EINVALID, "malformed document: null node at %d", i)
		}
	}
	return &Document{Nodes: nodes}, nil
}

// MarshalJSON encodes the document as a JSON array of nodes.
// Call it directly rather than through json.Marshal to keep HTML unescaped.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil || d.Nodes == nil {
		return []byte("[]"), nil
	}
	return marshalValue(d.Nodes)
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := &Document{Nodes: make([]*Node, len(d.Nodes))}
	for i, n := range d.Nodes {
		c.Nodes[i] = n.Clone()
	}
	return c
}
