// Package journal stores the mutations an editing session pushed to the
// runtime, so they can be replayed or inverted for undo.
//
// Three backends are provided: [NullJournal] discards everything,
// [FileJournal] appends JSON lines to a local file, and [MongoJournal]
// stores entries in a MongoDB collection. A [Recorder] connects a journal
// to a canvas as an observer.
package journal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
)

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("journal closed")

// Journal is an append-only log of mutations.
type Journal interface {
	// Append adds m to the end of the log.
	Append(ctx context.Context, m canvas.Mutation) error

	// Entries returns every entry in append order.
	Entries(ctx context.Context) ([]Entry, error)

	// Close releases resources held by the journal.
	Close() error
}

// Entry is one journaled mutation.
type Entry struct {
	Seq      int64           `json:"seq" bson:"seq"`
	Time     time.Time       `json:"time" bson:"time"`
	Mutation canvas.Mutation `json:"mutation" bson:"-"`
	// Sum is the SHA-256 of the mutation's JSON form. Entries whose sum does
	// not match are treated as corrupt and skipped.
	Sum string `json:"sum" bson:"sum"`
}

// newEntry stamps m with seq and the current time.
func newEntry(seq int64, m canvas.Mutation) (Entry, []byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Entry{}, nil, err
	}
	return Entry{Seq: seq, Time: time.Now().UTC(), Mutation: m, Sum: hash(data)}, data, nil
}

// hash computes the hex SHA-256 of data.
func hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// verify reports whether e's sum matches its mutation.
func (e Entry) verify() bool {
	data, err := json.Marshal(e.Mutation)
	return err == nil && hash(data) == e.Sum
}
