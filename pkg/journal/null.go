package journal

import (
	"context"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
)

// NullJournal is a journal that never stores anything.
// Useful for testing or when journaling is disabled.
type NullJournal struct{}

// NewNullJournal creates a null journal.
func NewNullJournal() Journal {
	return &NullJournal{}
}

// Append does nothing.
func (j *NullJournal) Append(ctx context.Context, m canvas.Mutation) error {
	return nil
}

// Entries always returns an empty log.
func (j *NullJournal) Entries(ctx context.Context) ([]Entry, error) {
	return nil, nil
}

// Close does nothing.
func (j *NullJournal) Close() error {
	return nil
}

// Ensure NullJournal implements Journal.
var _ Journal = (*NullJournal)(nil)
