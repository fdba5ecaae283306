package pipeline

import (
	"github.com/shpitdev/call-analyzer/internal/classify"
	"github.com/shpitdev/call-analyzer/internal/records"
	"github.com/shpitdev/call-analyzer/internal/store"
)

// resultRow builds the stored row for rec. The base columns win over input
// columns of the same name.
func resultRow(rec records.Record, c classify.Classification) store.Row {
	extra := make(map[string]string, len(rec.Values))
	for k, v := range rec.Values {
		extra[k] = v
	}
	for _, base := range store.BaseColumns() {
		delete(extra, base)
	}
	return store.Row{
		ConversationID: rec.ConversationID,
		CallStatus:     c.Category,
		Justification:  c.Justification,
		Extra:          extra,
	}
}
