package classify_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shpitdev/call-analyzer/internal/classify"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      classify.Classification
		wantJusti string // substring check when want.Justification is empty
	}{
		{
			name: "both fields",
			in:   `{"category":"ventas","justification":"cliente interesado"}`,
			want: classify.Classification{Category: "ventas", Justification: "cliente interesado"},
		},
		{
			name: "surrounding whitespace",
			in:   "\n  {\"category\":\"soporte\",\"justification\":\"x\"}  \n",
			want: classify.Classification{Category: "soporte", Justification: "x"},
		},
		{
			name: "missing category",
			in:   `{"justification":"x"}`,
			want: classify.Classification{Category: "error", Justification: "x"},
		},
		{
			name: "missing justification",
			in:   `{"category":"ventas"}`,
			want: classify.Classification{Category: "ventas", Justification: "Respuesta JSON incompleta"},
		},
		{
			name: "empty object",
			in:   `{}`,
			want: classify.Classification{Category: "error", Justification: "Respuesta JSON incompleta"},
		},
		{
			name: "null category counts as missing",
			in:   `{"category":null,"justification":"x"}`,
			want: classify.Classification{Category: "error", Justification: "x"},
		},
		{
			name: "non-string category kept as JSON text",
			in:   `{"category":3,"justification":"x"}`,
			want: classify.Classification{Category: "3", Justification: "x"},
		},
		{
			name:      "not json",
			in:        `not json`,
			want:      classify.Classification{Category: "error"},
			wantJusti: "not json",
		},
		{
			name:      "fenced json is not json",
			in:        "```json\n{\"category\":\"ventas\"}\n```",
			want:      classify.Classification{Category: "error"},
			wantJusti: "Respuesta no es un JSON válido",
		},
		{
			name:      "empty response",
			in:        ``,
			want:      classify.Classification{Category: "error"},
			wantJusti: "Respuesta no es un JSON válido",
		},
		{
			name:      "array",
			in:        `["ventas"]`,
			want:      classify.Classification{Category: "error"},
			wantJusti: "Error al parsear la respuesta: response is a JSON array",
		},
		{
			name:      "json null",
			in:        `null`,
			want:      classify.Classification{Category: "error"},
			wantJusti: "Error al parsear la respuesta: response is a JSON null",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify.ParseResponse(tt.in)
			if tt.wantJusti != "" {
				if got.Category != tt.want.Category {
					t.Fatalf("category=%q want=%q", got.Category, tt.want.Category)
				}
				if !strings.Contains(got.Justification, tt.wantJusti) {
					t.Fatalf("justification=%q want substring %q", got.Justification, tt.wantJusti)
				}
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ParseResponse(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestDecode_ErrorKinds(t *testing.T) {
	tests := []struct {
		in   string
		kind classify.ParseErrorKind
	}{
		{in: `not json`, kind: classify.ParseErrInvalidJSON},
		{in: `"ventas"`, kind: classify.ParseErrNotObject},
		{in: `42`, kind: classify.ParseErrNotObject},
		{in: `{"justification":"x"}`, kind: classify.ParseErrMissingCategory},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			_, err := classify.Decode(tt.in)
			var pe *classify.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Decode(%q) err=%v, want *ParseError", tt.in, err)
			}
			if pe.Kind != tt.kind {
				t.Fatalf("kind=%s want=%s", pe.Kind, tt.kind)
			}
			if pe.Raw != tt.in {
				t.Fatalf("raw=%q want=%q", pe.Raw, tt.in)
			}
		})
	}

	if _, err := classify.Decode(`{"category":"a","justification":"b"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
