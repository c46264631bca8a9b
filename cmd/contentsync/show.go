package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/contentsync"
)

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	content, err := deps.Store.FindContentByID(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", contentsync.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "#%d %s %q [%s]\n", content.ID, content.Type, content.Title, content.Status)
	if content.Language != "" {
		fmt.Fprintf(deps.Stdout, "Language: %s\n", content.Language)
	}
	if content.TranslationGroup != "" {
		fmt.Fprintf(deps.Stdout, "Group: %s\n", content.TranslationGroup)
	}
	if src := content.Meta[contentsync.MetaSourceID]; src != "" {
		fmt.Fprintf(deps.Stdout, "Source: %s\n", src)
	}
	fmt.Fprintln(deps.Stdout)

	if c.Fragments {
		if !content.HasDocument() {
			fmt.Fprintln(deps.Stdout, "No page-builder document.")
			return nil
		}
		fragments := contentsync.CollectJSON([]byte(content.Data), deps.Schema)
		if c.Markdown {
			fragments = deps.Converter.ConvertFragments(fragments)
		}
		fmt.Fprint(deps.Stdout, contentsync.FormatFragments(fragments))
		return nil
	}

	body := content.Body
	if c.Markdown && strings.TrimSpace(body) != "" {
		if body, err = deps.Converter.Convert(body); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", contentsync.ErrorMessage(err))
			return err
		}
	}
	fmt.Fprintln(deps.Stdout, body)
	return nil
}
