package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
)

// FileJournal appends entries as JSON lines to a local file.
// It is safe for concurrent use.
type FileJournal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	seq    int64
	closed bool
}

// NewFileJournal opens or creates the journal at path. Entries already in
// the file are kept and numbering continues after them.
func NewFileJournal(path string) (*FileJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	j := &FileJournal{path: path}
	existing, err := j.read()
	if err != nil {
		return nil, err
	}
	if n := len(existing); n > 0 {
		j.seq = existing[n-1].Seq
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	j.file = f
	return j, nil
}

// Path returns the journal file path.
func (j *FileJournal) Path() string { return j.path }

// Append writes m as one line.
func (j *FileJournal) Append(ctx context.Context, m canvas.Mutation) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}

	e, _, err := newEntry(j.seq+1, m)
	if err != nil {
		return err
	}
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return err
	}
	j.seq = e.Seq
	return nil
}

// Entries reads the file back. Corrupt lines are skipped.
func (j *FileJournal) Entries(ctx context.Context) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, ErrClosed
	}
	return j.read()
}

func (j *FileJournal) read() ([]Entry, error) {
	f, err := os.Open(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil || !e.verify() {
			// Invalid entry - skip it
			continue
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// Close flushes and closes the file.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}

// Ensure FileJournal implements Journal.
var _ Journal = (*FileJournal)(nil)
