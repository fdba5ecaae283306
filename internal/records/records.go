// Package records reads the input record set: one call transcript per CSV row.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	ColumnConversationID = "conversation_id"
	ColumnTranscript     = "transcript"
)

// missingTranscript is used when the input has no transcript column at all.
const missingTranscript = "[]"

// Record is one input row.
type Record struct {
	// Index is the 0-based position among data rows.
	Index          int
	ConversationID string
	Transcript     string
	// Values holds every cell keyed by header name, including the id and transcript.
	Values map[string]string
}

// Set is a parsed input file.
type Set struct {
	// Columns is the input header in file order.
	Columns []string
	Records []Record
}

// FallbackID is the id assigned to a row that has no conversation_id.
func FallbackID(index int) string {
	return "row_" + strconv.Itoa(index)
}

// ReadFile opens path and parses it with Read. A missing file yields an error
// matching os.ErrNotExist.
func ReadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, err
	}
	defer func() {
		_ = f.Close()
	}()
	set, err := Read(f)
	if err != nil {
		return Set{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return set, nil
}

// Read parses a CSV whose header names the columns. Only the header is
// required; conversation_id and transcript are optional per row.
func Read(r io.Reader) (Set, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	// Transcripts carry unescaped quotes from free speech.
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Set{}, errors.New("read header: file is empty")
		}
		return Set{}, fmt.Errorf("read header: %w", err)
	}
	columns, err := normalizeHeader(header)
	if err != nil {
		return Set{}, err
	}
	hasID := contains(columns, ColumnConversationID)
	hasTranscript := contains(columns, ColumnTranscript)

	set := Set{Columns: columns}
	for index := 0; ; index++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return set, nil
		}
		if err != nil {
			return Set{}, fmt.Errorf("read row %d: %w", index, err)
		}
		if len(rec) > len(columns) {
			return Set{}, fmt.Errorf("row %d has %d columns, header has %d", index, len(rec), len(columns))
		}

		values := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				values[col] = rec[i]
			} else {
				values[col] = ""
			}
		}

		id := strings.TrimSpace(values[ColumnConversationID])
		if !hasID || id == "" {
			id = FallbackID(index)
		}
		transcript := missingTranscript
		if hasTranscript {
			transcript = values[ColumnTranscript]
		}

		set.Records = append(set.Records, Record{
			Index:          index,
			ConversationID: id,
			Transcript:     transcript,
			Values:         values,
		})
	}
}

// DuplicateIDs returns ids that occur more than once, in first-seen order.
func (s Set) DuplicateIDs() []string {
	seen := make(map[string]int, len(s.Records))
	var dups []string
	for _, rec := range s.Records {
		seen[rec.ConversationID]++
		if seen[rec.ConversationID] == 2 {
			dups = append(dups, rec.ConversationID)
		}
	}
	return dups
}

func normalizeHeader(header []string) ([]string, error) {
	out := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = struct{}{}
		out[i] = name
	}
	return out, nil
}

func contains(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}
