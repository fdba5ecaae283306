package redact

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" (JWTs and opaque tokens). Tokens show up in logs via
	// downstream libraries and HTTP error messages.
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Common key=value formats that sometimes leak in error strings, including the
	// ?key= query parameter used by the Gemini REST surface.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|x-api-key|key|gemini[_-]?api[_-]?key|anthropic[_-]?api[_-]?key|aws[_-]?secret[_-]?access[_-]?key)\b\s*[:=]\s*[^\s"'&]+`)

	// Provider key shapes that can appear without a key= prefix.
	anthropicKeyRe = regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_\-]+`)
	googleKeyRe    = regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{20,}`)
)

// Secrets removes obvious secret-bearing substrings from error/log strings.
//
// It is safe to call on any message, including transcripts echoed back by a
// model and upstream error strings.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	out = anthropicKeyRe.ReplaceAllString(out, "<redacted>")
	out = googleKeyRe.ReplaceAllString(out, "<redacted>")
	return strings.TrimSpace(out)
}
