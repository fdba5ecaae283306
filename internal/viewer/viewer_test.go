package viewer_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/shpitdev/call-analyzer/internal/store"
	"github.com/shpitdev/call-analyzer/internal/viewer"
)

const sampleCSV = "conversation_id,call_status,justification,transcript\n" +
	"c1,venta,El cliente aceptó la oferta del plan anual con descuento especial,hola\n" +
	"c2,sin_contestaron,Transcripción vacía - no contestaron la llamada,[]\n" +
	"c3,venta,ok,x\n" +
	"c4,,,y\n"

func newServer(t *testing.T, body string) (*viewer.Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call_analysis_results.csv")
	if body != "" {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write store: %v", err)
		}
	}
	s, err := viewer.New(viewer.Options{
		StorePath: path,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new viewer: %v", err)
	}
	return s, path
}

func get(t *testing.T, s *viewer.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestComputeStats(t *testing.T) {
	tbl, err := store.Read(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	mod := time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)
	got := viewer.ComputeStats(tbl, mod)

	if got.TotalCalls != 4 || got.ProcessedCalls != 3 || got.UniqueStatuses != 2 {
		t.Fatalf("unexpected counts: %#v", got)
	}
	if got.LastUpdated != "2026-03-04 05:06:07" {
		t.Fatalf("last_updated=%q", got.LastUpdated)
	}
	if diff := cmp.Diff(map[string]int{"venta": 2, "sin_contestaron": 1}, got.StatusDistribution); diff != "" {
		t.Fatalf("distribution mismatch (-want +got):\n%s", diff)
	}
	if got.Distribution[0].Status != "venta" {
		t.Fatalf("distribution not sorted by count: %#v", got.Distribution)
	}
	if want := "El cliente aceptó la oferta del plan anual con des..."; got.SampleCalls[0].Justification != want {
		t.Fatalf("truncated justification=%q want %q", got.SampleCalls[0].Justification, want)
	}
	if got.SampleCalls[2].Justification != "ok" {
		t.Fatalf("short justification must be kept: %q", got.SampleCalls[2].Justification)
	}
}

func TestComputeStats_SampleIsFirstTen(t *testing.T) {
	var b strings.Builder
	b.WriteString("conversation_id,call_status,justification\n")
	for i := 0; i < 15; i++ {
		b.WriteString("c" + string(rune('a'+i)) + ",venta,ok\n")
	}
	tbl, err := store.Read(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := viewer.ComputeStats(tbl, time.Now())
	if len(got.SampleCalls) != 10 || got.SampleCalls[9].ConversationID != "cj" {
		t.Fatalf("unexpected sample: %#v", got.SampleCalls)
	}
}

func TestStatus(t *testing.T) {
	t.Run("absent file", func(t *testing.T) {
		s, _ := newServer(t, "")
		rec := get(t, s, "/status")
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
		if strings.TrimSpace(rec.Body.String()) != `{"file_exists":false}` {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("present file", func(t *testing.T) {
		s, _ := newServer(t, sampleCSV)
		rec := get(t, s, "/status")
		var got struct {
			FileExists         bool           `json:"file_exists"`
			TotalCalls         int            `json:"total_calls"`
			ProcessedCalls     int            `json:"processed_calls"`
			UniqueStatuses     int            `json:"unique_statuses"`
			StatusDistribution map[string]int `json:"status_distribution"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v (%s)", err, rec.Body.String())
		}
		if !got.FileExists || got.TotalCalls != 4 || got.ProcessedCalls != 3 || got.UniqueStatuses != 2 {
			t.Fatalf("unexpected status: %#v", got)
		}
		if got.StatusDistribution["venta"] != 2 {
			t.Fatalf("unexpected distribution: %#v", got.StatusDistribution)
		}

		var keys map[string]json.RawMessage
		if err := json.Unmarshal(rec.Body.Bytes(), &keys); err != nil {
			t.Fatalf("decode keys: %v", err)
		}
		for _, k := range []string{"file_exists", "total_calls", "processed_calls", "unique_statuses", "last_updated", "status_distribution"} {
			if _, ok := keys[k]; !ok {
				t.Fatalf("missing key %q: %s", k, rec.Body.String())
			}
		}
		if len(keys) != 6 {
			t.Fatalf("unexpected keys: %s", rec.Body.String())
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		s, _ := newServer(t, "no_id_column\nx\n")
		rec := get(t, s, "/status")
		var got map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := got["error"]; !ok {
			t.Fatalf("expected error key: %s", rec.Body.String())
		}
	})
}

func TestDownload(t *testing.T) {
	t.Run("absent file", func(t *testing.T) {
		s, _ := newServer(t, "")
		rec := get(t, s, "/download")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status=%d want 404", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Archivo no encontrado") {
			t.Fatalf("unexpected body: %q", rec.Body.String())
		}
	})

	t.Run("present file", func(t *testing.T) {
		s, _ := newServer(t, sampleCSV)
		rec := get(t, s, "/download")
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") || !strings.Contains(cd, "call_analysis_results.csv") {
			t.Fatalf("unexpected Content-Disposition: %q", cd)
		}
		if rec.Body.String() != sampleCSV {
			t.Fatalf("body mismatch:\n%s", cmp.Diff(sampleCSV, rec.Body.String()))
		}
	})
}

func TestIndex(t *testing.T) {
	t.Run("absent file", func(t *testing.T) {
		s, _ := newServer(t, "")
		rec := get(t, s, "/")
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Archivo de resultados no encontrado") {
			t.Fatalf("expected not-found page")
		}
	})

	t.Run("present file", func(t *testing.T) {
		s, _ := newServer(t, sampleCSV)
		rec := get(t, s, "/")
		body := rec.Body.String()
		if rec.Code != http.StatusOK || !strings.Contains(body, "Total de Llamadas") || !strings.Contains(body, "sin_contestaron") {
			t.Fatalf("unexpected page (status=%d)", rec.Code)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		s, _ := newServer(t, "no_id_column\nx\n")
		rec := get(t, s, "/")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status=%d want 500", rec.Code)
		}
		if !strings.HasPrefix(rec.Body.String(), "Error al leer el archivo: ") {
			t.Fatalf("unexpected body: %q", rec.Body.String())
		}
	})
}

func TestHealthz(t *testing.T) {
	s, _ := newServer(t, "")
	if rec := get(t, s, "/healthz"); rec.Code != http.StatusNoContent {
		t.Fatalf("status=%d want 204", rec.Code)
	}
}
