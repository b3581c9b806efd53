package roadmap

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ErrNoSnapshot is returned by a Storage that has nothing saved yet.
var ErrNoSnapshot = errors.New("no roadmap snapshot")

// Snapshot is the persisted form of a SparseGraph.
type Snapshot struct {
	ID        string      `json:"id"`
	Dimension int         `json:"dimension"`
	Criteria  Criteria    `json:"criteria"`
	Vertices  [][]float64 `json:"vertices"`
	Edges     []Edge      `json:"edges"`
}

// Storage persists roadmap snapshots.
type Storage interface {
	fmt.Stringer
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
	Close() error
}

// FileStorage keeps a snapshot as zstd compressed JSON in a single file.
type FileStorage struct {
	path string
}

// NewFileStorage returns a storage backed by the file at path. The file is created on first save.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (fs *FileStorage) String() string {
	return fs.path
}

// Save writes snap to a temporary file next to the target and renames it into place, so a failed
// save never truncates an existing roadmap.
func (fs *FileStorage) Save(ctx context.Context, snap *Snapshot) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(fs.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(fs.path), filepath.Base(fs.path)+".tmp*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, os.Remove(tmp.Name()))
		}
	}()

	enc, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return multierr.Combine(err, tmp.Close())
	}
	if err := json.NewEncoder(enc).Encode(snap); err != nil {
		return multierr.Combine(err, enc.Close(), tmp.Close())
	}
	if err := multierr.Combine(enc.Close(), tmp.Close()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fs.path)
}

// Load reads the snapshot file. A missing file yields ErrNoSnapshot.
func (fs *FileStorage) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	//nolint:gosec
	f, err := os.Open(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	snap := &Snapshot{}
	if err := json.NewDecoder(dec).Decode(snap); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", fs.path)
	}
	return snap, nil
}

// Close is a no-op.
func (fs *FileStorage) Close() error {
	return nil
}
