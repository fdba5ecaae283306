package classify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseErrorKind tags why a model response could not be used as-is.
type ParseErrorKind int

const (
	// ParseErrInvalidJSON means the response is not JSON at all.
	ParseErrInvalidJSON ParseErrorKind = iota + 1
	// ParseErrNotObject means the response is JSON but not an object.
	ParseErrNotObject
	// ParseErrMissingCategory means the object has no usable "category" field.
	ParseErrMissingCategory
)

func (k ParseErrorKind) String() string {
	switch k {
	case ParseErrInvalidJSON:
		return "invalid_json"
	case ParseErrNotObject:
		return "not_object"
	case ParseErrMissingCategory:
		return "missing_category"
	default:
		return fmt.Sprintf("ParseErrorKind(%d)", int(k))
	}
}

// ParseError describes a response that Decode could not turn into a Classification.
type ParseError struct {
	Kind ParseErrorKind
	// Raw is the response text exactly as received.
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "parse error"
	}
	if e.Err == nil {
		return "parse response: " + e.Kind.String()
	}
	return fmt.Sprintf("parse response: %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

var errMissingCategory = errors.New(`missing "category" field`)

// Decode parses a model response of the form {"category": ..., "justification": ...}.
//
// A missing justification is not an error: it is replaced by a fixed
// "incomplete response" message. A missing category returns a
// *ParseError of kind ParseErrMissingCategory together with a Classification
// whose category is "error" and whose justification is still filled in.
// JSON null counts as missing; non-string scalars are kept as their JSON text.
func Decode(text string) (Classification, error) {
	trimmed := bytes.TrimSpace([]byte(text))
	if !json.Valid(trimmed) {
		var syntaxErr error
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			syntaxErr = err
		}
		return Classification{}, &ParseError{Kind: ParseErrInvalidJSON, Raw: text, Err: syntaxErr}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil || obj == nil {
		return Classification{}, &ParseError{
			Kind: ParseErrNotObject,
			Raw:  text,
			Err:  fmt.Errorf("response is a JSON %s, not an object", jsonKind(trimmed)),
		}
	}

	out := Classification{Justification: incompleteJustification}
	if j, ok := fieldText(obj["justification"]); ok {
		out.Justification = j
	}
	category, ok := fieldText(obj["category"])
	if !ok {
		out.Category = CategoryError
		return out, &ParseError{Kind: ParseErrMissingCategory, Raw: text, Err: errMissingCategory}
	}
	out.Category = category
	return out, nil
}

// ParseResponse interprets a model response and always yields a Classification.
// Every failure collapses into the "error" category with a diagnostic justification.
func ParseResponse(text string) Classification {
	c, err := Decode(text)
	if err == nil {
		return c
	}

	var pe *ParseError
	if !errors.As(err, &pe) {
		return Classification{Category: CategoryError, Justification: "Error al parsear la respuesta: " + err.Error()}
	}
	switch pe.Kind {
	case ParseErrInvalidJSON:
		return Classification{Category: CategoryError, Justification: "Error: Respuesta no es un JSON válido: " + text}
	case ParseErrMissingCategory:
		return Classification{Category: CategoryError, Justification: c.Justification}
	default:
		cause := pe.Kind.String()
		if pe.Err != nil {
			cause = pe.Err.Error()
		}
		return Classification{Category: CategoryError, Justification: "Error al parsear la respuesta: " + cause}
	}
}

func fieldText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return strings.TrimSpace(string(raw)), true
	}
	return compact.String(), true
}

func jsonKind(b []byte) string {
	if len(b) == 0 {
		return "value"
	}
	switch b[0] {
	case '[':
		return "array"
	case '"':
		return "string"
	case 'n':
		return "null"
	case 't', 'f':
		return "boolean"
	default:
		return "number"
	}
}
