package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	ColumnConversationID = "conversation_id"
	ColumnCallStatus     = "call_status"
	ColumnJustification  = "justification"
)

// BaseColumns returns the leading columns every result file carries.
func BaseColumns() []string {
	return []string{ColumnConversationID, ColumnCallStatus, ColumnJustification}
}

// Row is one classified call. Extra holds the carried-over input columns.
type Row struct {
	ConversationID string
	CallStatus     string
	Justification  string
	Extra          map[string]string
}

// Get returns the value for column name, or "" when the row has none.
func (r Row) Get(name string) string {
	switch name {
	case ColumnConversationID:
		return r.ConversationID
	case ColumnCallStatus:
		return r.CallStatus
	case ColumnJustification:
		return r.Justification
	}
	return r.Extra[name]
}

// Table is a result file as read from disk.
type Table struct {
	Columns []string
	Rows    []Row
}

// ReadFile parses the result file at path. A missing file yields an error
// matching os.ErrNotExist.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer func() {
		_ = f.Close()
	}()
	t, err := Read(f)
	if err != nil {
		return Table{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

// Read parses a result CSV. The header must name conversation_id; the other
// base columns may be absent and read as empty.
func Read(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, errors.New("read header: file is empty")
		}
		return Table{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	found := false
	for _, col := range header {
		if col == ColumnConversationID {
			found = true
			break
		}
	}
	if !found {
		return Table{}, fmt.Errorf("missing required column %q", ColumnConversationID)
	}

	t := Table{Columns: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return Table{}, fmt.Errorf("read row %d: %w", len(t.Rows), err)
		}

		row := Row{Extra: make(map[string]string)}
		for i, col := range header {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			switch col {
			case ColumnConversationID:
				row.ConversationID = v
			case ColumnCallStatus:
				row.CallStatus = v
			case ColumnJustification:
				row.Justification = v
			default:
				row.Extra[col] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}
}

// Write encodes rows under columns as CSV.
func Write(w io.Writer, columns []string, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	rec := make([]string, len(columns))
	for _, r := range rows {
		for i, col := range columns {
			rec[i] = r.Get(col)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// unionColumns returns the base columns followed by every other name from
// each list, first occurrence wins.
func unionColumns(lists ...[]string) []string {
	out := BaseColumns()
	seen := make(map[string]struct{}, len(out))
	for _, c := range out {
		seen[c] = struct{}{}
	}
	for _, list := range lists {
		for _, c := range list {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
