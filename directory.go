package indexstore

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"

	"indexstore/ds"
	"indexstore/iofile"
	"indexstore/stream"
	"indexstore/util"
)

var (
	// ErrDirectoryClosed operation on a closed directory.
	ErrDirectoryClosed = errors.New("directory is closed")

	// ErrAlreadyOpen the name is held by an open stream.
	ErrAlreadyOpen = errors.New("file is already open")

	// ErrPendingDelete the name belongs to a file awaiting deferred delete.
	ErrPendingDelete = errors.New("file is pending delete")
)

// Directory maps logical file names to streams over physical storage.
type Directory interface {
	// OpenInput opens a buffered reader over the named file. Non-positive
	// bufferSize falls back to the directory default.
	OpenInput(name string, bufferSize int) (*stream.Input, error)

	// CreateOutput creates or truncates the named file for writing.
	// One writer per name at a time.
	CreateOutput(name string) (*stream.Output, error)

	// CreateTempOutput creates a uniquely named file carrying the given
	// prefix and returns the stream along with the generated name.
	CreateTempOutput(prefix string) (*stream.Output, string, error)

	// ListAll returns all file names in the directory in sorted order.
	ListAll() ([]string, error)

	// FileExists reports whether the named file exists.
	FileExists(name string) bool

	// FileLength returns the named file's current size.
	FileLength(name string) (int64, error)

	// DeleteFile removes the named file.
	DeleteFile(name string) error

	// Rename renames oldName to newName, replacing any existing newName.
	Rename(oldName, newName string) error

	// Close marks the directory closed. Streams already handed out keep
	// working until their holders close them.
	Close() error
}

// fileRef tracks the live streams over one name so a delete can wait for
// the last of them.
type fileRef struct {
	readers       int
	writer        bool
	pendingDelete bool
}

func (r *fileRef) busy() bool {
	return r.readers > 0 || r.writer
}

// FSDirectory is a Directory over a single filesystem directory. File names
// never contain path separators; nesting is the caller's business.
type FSDirectory struct {
	cfg      Config
	path     string
	registry *ds.ConcurrentMap[string, *fileRef]
	node     *snowflake.Node
	closed   int32
}

var _ Directory = (*FSDirectory)(nil)

// Open creates or reopens the index directory at cfg.Path.
func Open(cfg Config) (*FSDirectory, error) {
	if cfg.Path == "" {
		return nil, errors.New("directory path is required")
	}
	if !util.PathExist(cfg.Path) {
		if err := os.MkdirAll(cfg.Path, os.ModePerm); err != nil {
			return nil, errors.Wrapf(err, "make directory: %s", cfg.Path)
		}
		// The new directory entry must survive a crash too.
		if err := util.SyncDir(filepath.Dir(cfg.Path)); err != nil {
			return nil, err
		}
	}
	node, err := snowflake.NewNode(rand.Int63() % 1023)
	if err != nil {
		return nil, err
	}
	return &FSDirectory{
		cfg:      cfg,
		path:     cfg.Path,
		registry: ds.NewConcurrentMap[*fileRef](cfg.ShardCount),
		node:     node,
	}, nil
}

func (d *FSDirectory) Path() string {
	return d.path
}

func (d *FSDirectory) isClosed() bool {
	return atomic.LoadInt32(&d.closed) == 1
}

// OpenInput opens a buffered reader over the named file. Every call opens
// an independent raw handle; clones of the returned stream share it.
func (d *FSDirectory) OpenInput(name string, bufferSize int) (*stream.Input, error) {
	if d.isClosed() {
		return nil, ErrDirectoryClosed
	}
	if bufferSize <= 0 {
		bufferSize = d.cfg.BufferSize
	}
	src, err := d.openRaw(name)
	if err != nil {
		return nil, err
	}
	return stream.NewInput(src, bufferSize, d.cfg.ChunkSize), nil
}

func (d *FSDirectory) openRaw(name string) (iofile.Input, error) {
	var (
		src iofile.Input
		err error
	)
	full := filepath.Join(d.path, name)
	switch d.cfg.IOType {
	case MMapIO:
		src, err = iofile.NewMMapInput(full)
	default:
		src, err = iofile.NewFileInput(full)
	}
	if err != nil {
		return nil, err
	}

	shard := d.registry.GetShardByWriting(name)
	ref, ok := shard.Get(name)
	if !ok {
		ref = &fileRef{}
		shard.Set(name, ref)
	}
	if ref.pendingDelete {
		shard.Unlock()
		_ = src.Close()
		return nil, iofile.ErrNotFound
	}
	ref.readers++
	shard.Unlock()

	src.SetOnRelease(func() {
		d.releaseReader(name)
	})
	return src, nil
}

func (d *FSDirectory) releaseReader(name string) {
	shard := d.registry.GetShardByWriting(name)
	defer shard.Unlock()
	ref, ok := shard.Get(name)
	if !ok {
		return
	}
	ref.readers--
	d.reapLocked(shard, name, ref)
}

func (d *FSDirectory) releaseWriter(name string) {
	shard := d.registry.GetShardByWriting(name)
	defer shard.Unlock()
	ref, ok := shard.Get(name)
	if !ok {
		return
	}
	ref.writer = false
	d.reapLocked(shard, name, ref)
}

// reapLocked applies a deferred delete or drops an idle registry entry.
// The caller holds the shard lock.
func (d *FSDirectory) reapLocked(shard *ds.MapShard[string, *fileRef], name string, ref *fileRef) {
	if ref.busy() {
		return
	}
	if ref.pendingDelete {
		_ = os.Remove(filepath.Join(d.path, name))
	}
	shard.Remove(name)
}

// CreateOutput creates or truncates the named file for writing. A second
// writer on the same name fails with ErrAlreadyOpen until the first one
// closes. Readers of the old contents keep their length snapshot.
func (d *FSDirectory) CreateOutput(name string) (*stream.Output, error) {
	if d.isClosed() {
		return nil, ErrDirectoryClosed
	}

	shard := d.registry.GetShardByWriting(name)
	ref, ok := shard.Get(name)
	if !ok {
		ref = &fileRef{}
		shard.Set(name, ref)
	}
	switch {
	case ref.pendingDelete:
		shard.Unlock()
		return nil, ErrPendingDelete
	case ref.writer:
		shard.Unlock()
		return nil, ErrAlreadyOpen
	}
	ref.writer = true
	shard.Unlock()

	dst, err := iofile.NewFileOutput(filepath.Join(d.path, name))
	if err != nil {
		d.releaseWriter(name)
		return nil, err
	}
	out := stream.NewOutput(dst, d.cfg.BufferSize)
	out.SetOnClose(func() {
		d.releaseWriter(name)
	})
	return out, nil
}

// CreateTempOutput creates a uniquely named file like "prefix_<id>.tmp".
// The caller renames it into place once its contents are durable, or
// deletes it.
func (d *FSDirectory) CreateTempOutput(prefix string) (*stream.Output, string, error) {
	if d.isClosed() {
		return nil, "", ErrDirectoryClosed
	}
	for {
		name := fmt.Sprintf("%s_%s.tmp", prefix, d.node.Generate())
		if util.PathExist(filepath.Join(d.path, name)) {
			continue
		}
		out, err := d.CreateOutput(name)
		if err != nil {
			return nil, "", err
		}
		return out, name, nil
	}
}

// ListAll returns the names of all regular files in sorted order, minus
// any that are pending delete.
func (d *FSDirectory) ListAll() ([]string, error) {
	if d.isClosed() {
		return nil, ErrDirectoryClosed
	}
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, errors.Wrapf(err, "list directory: %s", d.path)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if d.isPendingDelete(name) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func (d *FSDirectory) isPendingDelete(name string) bool {
	shard := d.registry.GetShardByReading(name)
	defer shard.RUnlock()
	ref, ok := shard.Get(name)
	return ok && ref.pendingDelete
}

func (d *FSDirectory) nameBusy(name string) bool {
	shard := d.registry.GetShardByReading(name)
	defer shard.RUnlock()
	ref, ok := shard.Get(name)
	return ok && (ref.busy() || ref.pendingDelete)
}

// FileExists reports whether the named file exists and is not pending
// delete.
func (d *FSDirectory) FileExists(name string) bool {
	if d.isClosed() || d.isPendingDelete(name) {
		return false
	}
	return util.PathExist(filepath.Join(d.path, name))
}

// FileLength returns the named file's current on-disk size.
func (d *FSDirectory) FileLength(name string) (int64, error) {
	if d.isClosed() {
		return 0, ErrDirectoryClosed
	}
	if d.isPendingDelete(name) {
		return 0, iofile.ErrNotFound
	}
	full := filepath.Join(d.path, name)
	if !util.PathExist(full) {
		return 0, iofile.ErrNotFound
	}
	return util.FileLength(full)
}

// DeleteFile removes the named file. While streams still hold it open the
// delete is deferred until the last one closes, but the name disappears
// from listings and lookups immediately.
func (d *FSDirectory) DeleteFile(name string) error {
	if d.isClosed() {
		return ErrDirectoryClosed
	}

	shard := d.registry.GetShardByWriting(name)
	defer shard.Unlock()
	if ref, ok := shard.Get(name); ok && ref.busy() {
		ref.pendingDelete = true
		return nil
	}
	full := filepath.Join(d.path, name)
	if !util.PathExist(full) {
		return iofile.ErrNotFound
	}
	if err := os.Remove(full); err != nil {
		return errors.Wrapf(err, "delete file: %s", full)
	}
	shard.Remove(name)
	return nil
}

// Rename renames oldName to newName, replacing any existing newName, then
// syncs the directory so the rename survives a crash. It refuses while
// either name is held by an open stream. Concurrent opens of the names
// being renamed are the caller's responsibility to avoid.
func (d *FSDirectory) Rename(oldName, newName string) error {
	if d.isClosed() {
		return ErrDirectoryClosed
	}
	if d.nameBusy(oldName) || d.nameBusy(newName) {
		return ErrAlreadyOpen
	}
	oldPath := filepath.Join(d.path, oldName)
	if !util.PathExist(oldPath) {
		return iofile.ErrNotFound
	}
	if err := os.Rename(oldPath, filepath.Join(d.path, newName)); err != nil {
		return errors.Wrapf(err, "rename file: %s", oldPath)
	}
	return util.SyncDir(d.path)
}

// SyncDir fsyncs the directory itself so that completed creates, deletes
// and renames survive a crash.
func (d *FSDirectory) SyncDir() error {
	if d.isClosed() {
		return ErrDirectoryClosed
	}
	return util.SyncDir(d.path)
}

// Close marks the directory closed. Streams already handed out keep
// working; deferred deletes still run as their last holders close.
func (d *FSDirectory) Close() error {
	atomic.StoreInt32(&d.closed, 1)
	return nil
}
