package ledger

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

// File is a line-oriented append-only ledger: one "id<TAB>seen_at" line per
// delivered record. Lines holding a bare id are accepted on load.
type File struct {
	path  string
	log   ports.Logger
	clock ports.Clock

	mu   sync.Mutex
	seen model.IDSet
}

var _ ports.Ledger = (*File)(nil)

func NewFile(path string, log ports.Logger, clk ports.Clock) *File {
	return &File{path: path, log: log, clock: clk, seen: model.NewIDSet()}
}

func (l *File) Path() string { return l.path }

// Load reads the whole file. A missing file is an empty ledger.
func (l *File) Load(ctx context.Context) (model.IDSet, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return l.snapshot(), nil
	}
	if err != nil {
		return nil, errors.Ledger(l.path, err)
	}

	complete := data
	if i := bytes.LastIndexByte(data, '\n'); i < len(data)-1 {
		complete = data[:i+1]
		l.log.Warn(ctx, "ignoring partial trailing ledger line", "path", l.path, "bytes", len(data)-i-1)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range bytes.Split(complete, []byte{'\n'}) {
		line = bytes.TrimRight(line, "\r")
		if tab := bytes.IndexByte(line, '\t'); tab >= 0 {
			line = line[:tab]
		}
		if len(line) == 0 {
			continue
		}
		l.seen.Add(string(line))
	}
	return l.copyLocked(), nil
}

// MarkSeen appends one line with a single write under an exclusive lock.
func (l *File) MarkSeen(ctx context.Context, id string) error {
	if err := model.ValidateID(id); err != nil {
		return errors.Ledger(l.path, err)
	}
	if err := ctx.Err(); err != nil {
		return errors.Ledger(l.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.Ledger(l.path, err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return errors.Ledger(l.path, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return errors.Ledger(l.path, errors.Wrap(err, "lock"))
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	sep, err := needsSeparator(f)
	if err != nil {
		return errors.Ledger(l.path, err)
	}

	line := make([]byte, 0, len(id)+40)
	if sep {
		line = append(line, '\n')
	}
	line = append(line, id...)
	line = append(line, '\t')
	line = l.clock.Now().UTC().AppendFormat(line, time.RFC3339)
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return errors.Ledger(l.path, errors.Wrap(err, "append"))
	}
	if err := f.Sync(); err != nil {
		return errors.Ledger(l.path, errors.Wrap(err, "sync"))
	}

	l.mu.Lock()
	l.seen.Add(id)
	l.mu.Unlock()
	return nil
}

func (l *File) Close() error { return nil }

// needsSeparator reports whether the file ends in an unterminated line.
func needsSeparator(f *os.File) (bool, error) {
	st, err := f.Stat()
	if err != nil {
		return false, err
	}
	if st.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, st.Size()-1); err != nil {
		return false, errors.Wrap(err, "read tail")
	}
	return last[0] != '\n', nil
}

func (l *File) snapshot() model.IDSet {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.copyLocked()
}

func (l *File) copyLocked() model.IDSet {
	out := make(model.IDSet, len(l.seen))
	for id := range l.seen {
		out.Add(id)
	}
	return out
}
