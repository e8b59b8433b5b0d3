// Package memory keeps journal rows in process; used by worker tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"finboard/internal/sheets"
)

type Journal struct {
	mu   sync.Mutex
	rows []sheets.JournalRow
}

var _ sheets.JournalWriter = (*Journal)(nil)

func New() *Journal {
	return &Journal{}
}

// Append stores the row and returns a synthetic row reference.
func (j *Journal) Append(_ context.Context, r sheets.JournalRow) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows = append(j.rows, r)
	return fmt.Sprintf("mem:%d", len(j.rows)), nil
}

// Rows returns a copy of the appended rows in order.
func (j *Journal) Rows() []sheets.JournalRow {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]sheets.JournalRow(nil), j.rows...)
}
