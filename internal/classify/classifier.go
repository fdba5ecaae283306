package classify

import (
	"context"
	"errors"
	"strings"

	"github.com/shpitdev/call-analyzer/internal/redact"
)

// Options tunes how prompts are built.
type Options struct {
	// PromptPrefix is placed before the transcript. Empty uses DefaultPromptPrefix.
	PromptPrefix string
}

// Classifier classifies transcripts through a Completer.
type Classifier struct {
	completer    Completer
	promptPrefix string
}

// New returns a Classifier backed by completer.
func New(completer Completer, opts Options) (*Classifier, error) {
	if completer == nil {
		return nil, errors.New("classify: completer is required")
	}
	prefix := opts.PromptPrefix
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPromptPrefix
	}
	return &Classifier{completer: completer, promptPrefix: prefix}, nil
}

// Classify returns the Classification for one transcript.
//
// Empty transcripts are answered locally without calling the completer. A
// failed completion call becomes an "error" Classification; Classify never
// returns an error and never retries.
func (c *Classifier) Classify(ctx context.Context, transcript string) Classification {
	if IsEmptyTranscript(transcript) {
		return Classification{Category: CategoryUnanswered, Justification: unansweredJustification}
	}

	text, err := c.completer.Complete(ctx, c.Prompt(transcript))
	if err != nil {
		return Classification{
			Category:      CategoryError,
			Justification: "Error al conectar con " + c.completer.Name() + ": " + redact.Secrets(err.Error()),
		}
	}
	return ParseResponse(text)
}

// Prompt builds the single user prompt sent for transcript.
func (c *Classifier) Prompt(transcript string) string {
	return c.promptPrefix + transcript
}
