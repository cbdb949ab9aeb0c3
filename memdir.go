package indexstore

import (
	"fmt"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"

	"indexstore/ds"
	"indexstore/iofile"
	"indexstore/stream"
	"indexstore/util"
)

// MemDirectory keeps every file in memory, for tests and short-lived
// indexes. A file's contents publish wholesale when its output closes; an
// input reads the snapshot that was current when it was opened, even
// across deletes and rewrites. Names keep byte order, so listings come
// back sorted for free.
type MemDirectory struct {
	mu      sync.RWMutex
	names   *ds.AdaptiveRadixTree // name → *memFile
	writers map[string]*memOutput
	node    *snowflake.Node
	closed  bool
}

type memFile struct {
	data []byte
}

var _ Directory = (*MemDirectory)(nil)

// NewMemDirectory returns an empty in-memory directory.
func NewMemDirectory() (*MemDirectory, error) {
	node, err := snowflake.NewNode(rand.Int63() % 1023)
	if err != nil {
		return nil, err
	}
	return &MemDirectory{
		names:   ds.NewART(),
		writers: make(map[string]*memOutput),
		node:    node,
	}, nil
}

// OpenInput opens a buffered reader over the named file's current contents.
func (m *MemDirectory) OpenInput(name string, bufferSize int) (*stream.Input, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrDirectoryClosed
	}
	val, ok := m.names.Get(util.StringToByte(name))
	if !ok {
		return nil, iofile.ErrNotFound
	}
	src := &memInput{name: name, data: val.(*memFile).data, refs: 1}
	return stream.NewInput(src, bufferSize, 0), nil
}

// CreateOutput creates or replaces the named file. The name is listed
// right away; the contents land when the stream closes.
func (m *MemDirectory) CreateOutput(name string) (*stream.Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrDirectoryClosed
	}
	if m.writers[name] != nil {
		return nil, ErrAlreadyOpen
	}
	out := &memOutput{dir: m, name: name}
	m.writers[name] = out
	m.names.Put(util.StringToByte(name), &memFile{})
	return stream.NewOutput(out, stream.DefaultBufferSize), nil
}

// CreateTempOutput creates a uniquely named file like "prefix_<id>.tmp".
func (m *MemDirectory) CreateTempOutput(prefix string) (*stream.Output, string, error) {
	for {
		name := fmt.Sprintf("%s_%s.tmp", prefix, m.node.Generate())
		if m.FileExists(name) {
			continue
		}
		out, err := m.CreateOutput(name)
		if err != nil {
			return nil, "", err
		}
		return out, name, nil
	}
}

// publish installs the output's bytes under its name. An output orphaned by
// a delete, or superseded after its name was deleted and recreated, no
// longer owns the name and publishes nothing.
func (m *MemDirectory) publish(out *memOutput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writers[out.name] != out {
		return
	}
	delete(m.writers, out.name)
	m.names.Put(util.StringToByte(out.name), &memFile{data: out.data})
}

// ListAll returns all file names in sorted order.
func (m *MemDirectory) ListAll() ([]string, error) {
	return m.ListPrefix("", -1)
}

// ListPrefix returns up to limit names starting with prefix, in sorted
// order. A negative limit means no limit.
func (m *MemDirectory) ListPrefix(prefix string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrDirectoryClosed
	}
	var names []string
	for _, key := range m.names.PrefixScan(util.StringToByte(prefix), limit) {
		names = append(names, util.ByteToString(key))
	}
	return names, nil
}

// FileExists reports whether the named file exists.
func (m *MemDirectory) FileExists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false
	}
	_, ok := m.names.Get(util.StringToByte(name))
	return ok
}

// FileLength returns the named file's current size.
func (m *MemDirectory) FileLength(name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrDirectoryClosed
	}
	val, ok := m.names.Get(util.StringToByte(name))
	if !ok {
		return 0, iofile.ErrNotFound
	}
	return int64(len(val.(*memFile).data)), nil
}

// DeleteFile removes the named file immediately. Open inputs keep their
// snapshot; an open output for the name turns into a no-op on close.
func (m *MemDirectory) DeleteFile(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDirectoryClosed
	}
	if _, ok := m.names.Delete(util.StringToByte(name)); !ok {
		return iofile.ErrNotFound
	}
	delete(m.writers, name)
	return nil
}

// Rename renames oldName to newName, replacing any existing newName.
// It refuses while either name has an open output.
func (m *MemDirectory) Rename(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDirectoryClosed
	}
	if m.writers[oldName] != nil || m.writers[newName] != nil {
		return ErrAlreadyOpen
	}
	val, ok := m.names.Delete(util.StringToByte(oldName))
	if !ok {
		return iofile.ErrNotFound
	}
	m.names.Put(util.StringToByte(newName), val)
	return nil
}

// Size returns the number of files.
func (m *MemDirectory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.names.Size()
}

// Close marks the directory closed. Streams already handed out keep
// working until their holders close them.
func (m *MemDirectory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memInput is a raw read handle over one immutable content snapshot.
type memInput struct {
	sync.Mutex

	name      string
	data      []byte
	position  int64
	refs      int32
	onRelease func()
}

var _ iofile.Input = (*memInput)(nil)

func (in *memInput) Read(b []byte) (int, error) {
	if atomic.LoadInt32(&in.refs) <= 0 {
		return 0, iofile.ErrClosed
	}
	if in.position >= int64(len(in.data)) {
		return 0, io.EOF
	}
	if len(b) == 0 {
		return 0, nil
	}
	n := copy(b, in.data[in.position:])
	in.position += int64(n)
	return n, nil
}

func (in *memInput) SetPosition(pos int64) error {
	if pos < 0 || pos > int64(len(in.data)) {
		return iofile.ErrOutOfRange
	}
	in.position = pos
	return nil
}

func (in *memInput) Position() int64 {
	return in.position
}

func (in *memInput) Length() int64 {
	return int64(len(in.data))
}

func (in *memInput) Path() string {
	return in.name
}

func (in *memInput) IsValid() bool {
	return atomic.LoadInt32(&in.refs) > 0
}

func (in *memInput) IncrRef() {
	atomic.AddInt32(&in.refs, 1)
}

func (in *memInput) SetOnRelease(fn func()) {
	in.onRelease = fn
}

func (in *memInput) Close() error {
	refs := atomic.AddInt32(&in.refs, -1)
	if refs > 0 {
		return nil
	}
	if refs < 0 {
		return iofile.ErrClosed
	}
	if in.onRelease != nil {
		in.onRelease()
	}
	return nil
}

// memOutput grows a byte slice and hands it to the directory on Close.
type memOutput struct {
	dir      *MemDirectory
	name     string
	data     []byte
	position int64
	closed   bool
}

var _ iofile.Output = (*memOutput)(nil)

func (out *memOutput) Write(b []byte) (int, error) {
	if out.closed {
		return 0, iofile.ErrClosed
	}
	end := out.position + int64(len(b))
	if end > int64(len(out.data)) {
		grown := make([]byte, end)
		copy(grown, out.data)
		out.data = grown
	}
	copy(out.data[out.position:], b)
	out.position = end
	return len(b), nil
}

func (out *memOutput) SetPosition(pos int64) error {
	if out.closed {
		return iofile.ErrClosed
	}
	if pos < 0 {
		return iofile.ErrOutOfRange
	}
	// Past the end is fine; the gap zero-fills on the next write.
	out.position = pos
	return nil
}

func (out *memOutput) Length() (int64, error) {
	if out.closed {
		return 0, iofile.ErrClosed
	}
	return int64(len(out.data)), nil
}

func (out *memOutput) SetLength(n int64) error {
	if out.closed {
		return iofile.ErrClosed
	}
	if n < 0 {
		return iofile.ErrOutOfRange
	}
	if n <= int64(len(out.data)) {
		out.data = out.data[:n]
		return nil
	}
	grown := make([]byte, n)
	copy(grown, out.data)
	out.data = grown
	return nil
}

func (out *memOutput) Sync() error {
	return nil
}

func (out *memOutput) Path() string {
	return out.name
}

func (out *memOutput) IsValid() bool {
	return !out.closed
}

func (out *memOutput) Close() error {
	if out.closed {
		return iofile.ErrClosed
	}
	out.closed = true
	out.dir.publish(out)
	return nil
}
