package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fwojciec/contentsync"
)

// importRecord is one content item in an import file. Data may be given
// either as a JSON string or inline as the document array itself.
type importRecord struct {
	Type             string             `json:"type"`
	Title            string             `json:"title"`
	Body             string             `json:"body"`
	Data             json.RawMessage    `json:"data"`
	Status           contentsync.Status `json:"status"`
	Language         string             `json:"language"`
	TranslationGroup string             `json:"translationGroup"`
	Meta             map[string]string  `json:"meta"`
}

func (r *importRecord) content() (*contentsync.Content, error) {
	c := &contentsync.Content{
		Type:             r.Type,
		Title:            r.Title,
		Body:             r.Body,
		Status:           r.Status,
		Language:         r.Language,
		TranslationGroup: r.TranslationGroup,
		Meta:             r.Meta,
	}

	data := bytes.TrimSpace(r.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
	case data[0] == '"':
		if err := json.Unmarshal(data, &c.Data); err != nil {
			return nil, contentsync.Errorf(contentsync.EINVALID, "invalid data: %v", err)
		}
	default:
		c.Data = string(data)
	}
	return c, nil
}

// parseImport decodes a single content item or an array of items.
func parseImport(b []byte) ([]importRecord, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var records []importRecord
		if err := json.Unmarshal(b, &records); err != nil {
			return nil, contentsync.Errorf(contentsync.EINVALID, "invalid import file: %v", err)
		}
		return records, nil
	}

	var record importRecord
	if err := json.Unmarshal(b, &record); err != nil {
		return nil, contentsync.Errorf(contentsync.EINVALID, "invalid import file: %v", err)
	}
	return []importRecord{record}, nil
}

// Run executes the import command.
func (c *ImportCmd) Run(deps *Dependencies) error {
	if deps.Creator == nil {
		fmt.Fprintln(deps.Stderr, "error: import is only supported by the sqlite backend")
		return contentsync.Errorf(contentsync.ENOTIMPLEMENTED, "import not supported by this backend")
	}

	b, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.File, err)
	}

	records, err := parseImport(b)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", contentsync.ErrorMessage(err))
		return err
	}

	for i := range records {
		content, err := records[i].content()
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: item %d: %s\n", i+1, contentsync.ErrorMessage(err))
			return err
		}
		if err := deps.Creator.CreateContent(deps.Ctx, content); err != nil {
			fmt.Fprintf(deps.Stderr, "error: item %d: %s\n", i+1, contentsync.ErrorMessage(err))
			return err
		}
		fmt.Fprintf(deps.Stdout, "Imported #%d %q\n", content.ID, content.Title)
	}
	return nil
}
