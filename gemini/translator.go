package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fwojciec/contentsync"
	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// Ensure Translator implements both translation interfaces at compile time.
var (
	_ contentsync.Translator         = (*Translator)(nil)
	_ contentsync.FragmentTranslator = (*Translator)(nil)
)

// Generator generates model output. *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Translator implements contentsync.Translator and
// contentsync.FragmentTranslator using Google Gemini structured output.
type Translator struct {
	models         Generator
	model          string
	counter        contentsync.TokenCounter
	maxBatchTokens int
}

// Option configures a Translator.
type Option func(*Translator)

// WithTokenCounter sets the counter used to size fragment batches.
func WithTokenCounter(tc contentsync.TokenCounter) Option {
	return func(t *Translator) {
		t.counter = tc
	}
}

// WithMaxBatchTokens bounds the tokens sent per fragment request.
// It has no effect without a token counter.
func WithMaxBatchTokens(n int) Option {
	return func(t *Translator) {
		t.maxBatchTokens = n
	}
}

// NewTranslator creates a Translator for the given model. An empty model
// selects DefaultModel.
func NewTranslator(models Generator, model string, opts ...Option) *Translator {
	if model == "" {
		model = DefaultModel
	}
	t := &Translator{models: models, model: model}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Model returns the model name requests are sent to.
func (t *Translator) Model() string {
	return t.model
}

// Translate translates named blocks. The response is constrained to an
// object with exactly one string property per block.
func (t *Translator) Translate(ctx context.Context, blocks map[string]string, targetLanguage string) (map[string]string, error) {
	if targetLanguage == "" {
		return nil, contentsync.Errorf(contentsync.EINVALID, "target language required")
	}
	if len(blocks) == 0 {
		return map[string]string{}, nil
	}

	prompt, err := BuildBlocksPrompt(blocks)
	if err != nil {
		return nil, err
	}
	text, err := t.generate(ctx, prompt, BuildConfig(targetLanguage, BlocksSchema(blocks)))
	if err != nil {
		return nil, err
	}

	var out map[string]string
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, contentsync.Errorf(contentsync.EINTERNAL, "gemini returned malformed blocks: %v", err)
	}
	if err := contentsync.CheckBlocks(blocks, out); err != nil {
		return nil, err
	}
	return out, nil
}

// TranslateFragments translates fragments in order. When a token counter is
// configured, fragments are sent in batches that fit the token budget. If a
// batch comes back short, the translations gathered so far are returned so
// that the remaining fragments stay untranslated; surplus items are dropped.
func (t *Translator) TranslateFragments(ctx context.Context, fragments []string, targetLanguage string) ([]string, error) {
	if targetLanguage == "" {
		return nil, contentsync.Errorf(contentsync.EINVALID, "target language required")
	}
	if len(fragments) == 0 {
		return []string{}, nil
	}

	batches, err := splitBatches(ctx, t.counter, fragments, t.maxBatchTokens)
	if err != nil {
		return nil, fmt.Errorf("count tokens: %w", err)
	}

	config := BuildConfig(targetLanguage, FragmentsSchema())
	out := make([]string, 0, len(fragments))
	for _, batch := range batches {
		prompt, err := BuildFragmentsPrompt(batch)
		if err != nil {
			return nil, err
		}
		text, err := t.generate(ctx, prompt, config)
		if err != nil {
			return nil, err
		}

		var translated []string
		if err := json.Unmarshal([]byte(text), &translated); err != nil {
			return nil, contentsync.Errorf(contentsync.EINTERNAL, "gemini returned malformed fragments: %v", err)
		}
		if len(translated) < len(batch) {
			return append(out, translated...), nil
		}
		out = append(out, translated[:len(batch)]...)
	}
	return out, nil
}

func (t *Translator) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	result, err := t.models.GenerateContent(ctx, t.model,
		[]*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: prompt}},
		}},
		config,
	)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", contentsync.Errorf(contentsync.EINTERNAL, "gemini returned nil result")
	}
	return result.Text(), nil
}

// BuildConfig returns the GenerateContentConfig for a translation request.
func BuildConfig(targetLanguage string, schema *genai.Schema) *genai.GenerateContentConfig {
	temp := float32(0.2)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: BuildSystemInstruction(targetLanguage)}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
}

// BuildSystemInstruction returns the translator instructions for a language.
func BuildSystemInstruction(targetLanguage string) string {
	return fmt.Sprintf("You are a professional website translator. Translate every input text into %s. "+
		"Keep HTML tags, attributes, entities, shortcodes and placeholders exactly as they are and translate only human-readable text. "+
		"Return empty strings unchanged. Do not add, merge, split or reorder items.", targetLanguage)
}

// BlocksSchema returns an object schema with one required string property
// per block name, in sorted order.
func BlocksSchema(blocks map[string]string) *genai.Schema {
	names := sortedKeys(blocks)
	props := make(map[string]*genai.Schema, len(names))
	for _, name := range names {
		props[name] = &genai.Schema{Type: genai.TypeString}
	}
	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       props,
		Required:         names,
		PropertyOrdering: names,
	}
}

// FragmentsSchema returns an array-of-strings schema.
func FragmentsSchema() *genai.Schema {
	return &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeString},
	}
}

// BuildBlocksPrompt encodes blocks as the user prompt.
func BuildBlocksPrompt(blocks map[string]string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("Translate the values of this JSON object and keep its keys:\n")
	if err := encodeJSON(&buf, blocks); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildFragmentsPrompt encodes fragments as the user prompt.
func BuildFragmentsPrompt(fragments []string) (string, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Translate each of these %d strings and return a JSON array with exactly %d items in the same order:\n", len(fragments), len(fragments))
	if err := encodeJSON(&buf, fragments); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func encodeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode prompt: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
