// Package classify turns a call transcript into a Classification by asking a
// text-completion provider and interpreting its JSON answer.
package classify

import (
	"context"
	"strings"
)

const (
	// CategoryUnanswered marks a call without a usable transcript. It is decided
	// locally, never by the model.
	CategoryUnanswered = "sin_contestaron"
	// CategoryError marks any failure while classifying a single record.
	CategoryError = "error"
)

const (
	unansweredJustification = "Transcripción vacía - no contestaron la llamada"
	incompleteJustification = "Respuesta JSON incompleta"
)

// DefaultPromptPrefix is prepended to the transcript to form the single user prompt.
const DefaultPromptPrefix = "Analiza esta transcripción de llamada: "

// Classification is the outcome for one transcript.
type Classification struct {
	Category      string `json:"category"`
	Justification string `json:"justification"`
}

// IsError reports whether the classification records a failure.
func (c Classification) IsError() bool {
	return c.Category == CategoryError
}

// Completer is the text-completion capability used to classify transcripts.
type Completer interface {
	// Name identifies the provider in logs and error justifications.
	Name() string
	// Ping verifies the provider is reachable.
	Ping(ctx context.Context) error
	// Complete sends one user prompt and returns the full text response.
	Complete(ctx context.Context, prompt string) (string, error)
}

// IsEmptyTranscript reports whether a transcript carries no conversation: blank,
// or one of the "no transcript" markers written by the upstream export.
// Surrounding whitespace is ignored, so "   " and " [] " count as empty and
// never reach the model. Markers are case-sensitive.
func IsEmptyTranscript(transcript string) bool {
	switch strings.TrimSpace(transcript) {
	case "", "[]", "NULL":
		return true
	default:
		return false
	}
}
