package viewer

import (
	"sort"
	"strings"
	"time"

	"github.com/shpitdev/call-analyzer/internal/store"
)

const (
	sampleSize         = 10
	justificationRunes = 50
	timestampLayout    = "2006-01-02 15:04:05"
)

// Stats summarizes a result file for display.
type Stats struct {
	TotalCalls int
	// ProcessedCalls counts rows with a non-empty call_status.
	ProcessedCalls     int
	UniqueStatuses     int
	LastUpdated        string
	StatusDistribution map[string]int
	SampleCalls        []SampleCall

	// Distribution is StatusDistribution ordered by count, highest first.
	Distribution []StatusCount
}

type StatusCount struct {
	Status string
	Count  int
}

type SampleCall struct {
	ConversationID string
	CallStatus     string
	Justification  string
}

// ComputeStats derives Stats from the rows of a result file last modified at
// modTime.
func ComputeStats(t store.Table, modTime time.Time) Stats {
	s := Stats{
		TotalCalls:         len(t.Rows),
		LastUpdated:        modTime.Local().Format(timestampLayout),
		StatusDistribution: make(map[string]int),
		SampleCalls:        make([]SampleCall, 0, sampleSize),
	}
	for i, r := range t.Rows {
		status := strings.TrimSpace(r.CallStatus)
		if status != "" {
			s.ProcessedCalls++
			s.StatusDistribution[status]++
		}
		if i < sampleSize {
			s.SampleCalls = append(s.SampleCalls, SampleCall{
				ConversationID: r.ConversationID,
				CallStatus:     r.CallStatus,
				Justification:  truncate(r.Justification, justificationRunes),
			})
		}
	}
	s.UniqueStatuses = len(s.StatusDistribution)

	for status, n := range s.StatusDistribution {
		s.Distribution = append(s.Distribution, StatusCount{Status: status, Count: n})
	}
	sort.Slice(s.Distribution, func(i, j int) bool {
		if s.Distribution[i].Count != s.Distribution[j].Count {
			return s.Distribution[i].Count > s.Distribution[j].Count
		}
		return s.Distribution[i].Status < s.Distribution[j].Status
	})
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
