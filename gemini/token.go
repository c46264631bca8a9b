package gemini

import (
	"context"

	"github.com/fwojciec/contentsync"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

var _ contentsync.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts tokens locally using the Gemini tokenizer, without an
// API round trip.
type TokenCounter struct {
	tok *tokenizer.LocalTokenizer
}

// NewTokenCounter creates a TokenCounter for model. An empty model selects
// DefaultModel.
func NewTokenCounter(model string) (*TokenCounter, error) {
	if model == "" {
		model = DefaultModel
	}
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, contentsync.Errorf(contentsync.EINVALID, "tokenizer for model %q: %v", model, err)
	}
	return &TokenCounter{tok: tok}, nil
}

// CountTokens counts the number of tokens in text.
func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	result, err := tc.tok.CountTokens([]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return 0, err
	}
	return int(result.TotalTokens), nil
}

// splitBatches groups fragments into ordered batches of at most maxTokens
// tokens each. A fragment larger than maxTokens gets a batch of its own.
// With no counter or no budget all fragments form a single batch.
func splitBatches(ctx context.Context, counter contentsync.TokenCounter, fragments []string, maxTokens int) ([][]string, error) {
	if counter == nil || maxTokens <= 0 {
		return [][]string{fragments}, nil
	}

	var batches [][]string
	var current []string
	used := 0
	for _, f := range fragments {
		n, err := counter.CountTokens(ctx, f)
		if err != nil {
			return nil, err
		}
		if len(current) > 0 && used+n > maxTokens {
			batches = append(batches, current)
			current, used = nil, 0
		}
		current = append(current, f)
		used += n
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches, nil
}
