package stream

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"indexstore/iofile"
)

func testPattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func writeTestFile(t *testing.T, name string, data []byte) string {
	absPath, err := filepath.Abs(filepath.Join("/tmp", name))
	assert.Nil(t, err)
	err = os.WriteFile(absPath, data, iofile.FilePerm)
	assert.Nil(t, err)
	t.Cleanup(func() {
		_ = os.Remove(absPath)
	})
	return absPath
}

func openTestInput(t *testing.T, path string, bufferSize int, chunkSize int64) *Input {
	src, err := iofile.NewFileInput(path)
	assert.Nil(t, err)
	return NewInput(src, bufferSize, chunkSize)
}

func TestInput_Read(t *testing.T) {
	data := testPattern(100)
	path := writeTestFile(t, "00000200.fdt", data)

	type args struct {
		bufferSize int
		chunkSize  int64
	}
	tests := []struct {
		name string
		args args
	}{
		{
			"defaults", args{bufferSize: 0, chunkSize: 0},
		},
		{
			"small-buffer", args{bufferSize: 8, chunkSize: 4},
		},
		{
			"odd-sizes", args{bufferSize: 16, chunkSize: 7},
		},
		{
			"single-byte", args{bufferSize: 1, chunkSize: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := openTestInput(t, path, tt.args.bufferSize, tt.args.chunkSize)
			defer func() {
				_ = in.Close()
			}()
			assert.Equal(t, int64(100), in.Length())

			// One call for everything.
			got := make([]byte, 100)
			n, err := in.Read(got)
			assert.Nil(t, err)
			assert.Equal(t, 100, n)
			assert.Equal(t, data, got)
			assert.Equal(t, int64(100), in.FilePointer())

			// Again in ragged pieces.
			assert.Nil(t, in.Seek(0))
			var pieces []byte
			for _, size := range []int{1, 3, 20, 5, 50, 21} {
				b := make([]byte, size)
				n, err = in.Read(b)
				assert.Nil(t, err)
				assert.Equal(t, size, n)
				pieces = append(pieces, b...)
			}
			assert.Equal(t, data, pieces)
		})
	}
}

func TestInput_ReadByte(t *testing.T) {
	data := testPattern(20)
	path := writeTestFile(t, "00000201.fdx", data)
	in := openTestInput(t, path, 8, 0)
	defer func() {
		_ = in.Close()
	}()

	for i := 0; i < len(data); i++ {
		b, err := in.ReadByte()
		assert.Nil(t, err)
		assert.Equal(t, data[i], b)
		assert.Equal(t, int64(i+1), in.FilePointer())
	}
	_, err := in.ReadByte()
	assert.Equal(t, ErrUnexpectedEOF, err)
}

func TestInput_SeekRead(t *testing.T) {
	data := testPattern(100)
	path := writeTestFile(t, "00000202.si", data)
	in := openTestInput(t, path, 16, 7)
	defer func() {
		_ = in.Close()
	}()

	type args struct {
		pos  int64
		size int
	}
	tests := []struct {
		name string
		args args
	}{
		{
			"start", args{pos: 0, size: 10},
		},
		{
			"within-buffer", args{pos: 3, size: 5},
		},
		{
			"middle", args{pos: 50, size: 25},
		},
		{
			"backwards", args{pos: 10, size: 40},
		},
		{
			"last-byte", args{pos: 99, size: 1},
		},
		{
			"at-end", args{pos: 100, size: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, in.Seek(tt.args.pos))
			assert.Equal(t, tt.args.pos, in.FilePointer())
			b := make([]byte, tt.args.size)
			n, err := in.Read(b)
			assert.Nil(t, err)
			assert.Equal(t, tt.args.size, n)
			assert.Equal(t, data[tt.args.pos:tt.args.pos+int64(tt.args.size)], b[:n])
			assert.Equal(t, tt.args.pos+int64(tt.args.size), in.FilePointer())
		})
	}
}

func TestInput_SeekOutOfRange(t *testing.T) {
	path := writeTestFile(t, "00000203.si", testPattern(100))
	in := openTestInput(t, path, 16, 0)
	defer func() {
		_ = in.Close()
	}()

	type args struct {
		pos int64
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{
			"negative", args{pos: -1}, true,
		},
		{
			"at-length", args{pos: 100}, false,
		},
		{
			"past-length", args{pos: 101}, true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := in.Seek(tt.args.pos)
			if (err != nil) != tt.wantErr {
				t.Errorf("Seek() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assert.Equal(t, iofile.ErrOutOfRange, err)
			}
		})
	}
}

func TestInput_ReadPastEOF(t *testing.T) {
	data := testPattern(100)
	path := writeTestFile(t, "00000204.cfs", data)

	type args struct {
		pos  int64
		size int
	}
	tests := []struct {
		name string
		args args
	}{
		{
			"one-byte-too-many", args{pos: 0, size: 101},
		},
		{
			"from-middle", args{pos: 50, size: 51},
		},
		{
			"at-end", args{pos: 100, size: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := openTestInput(t, path, 16, 7)
			defer func() {
				_ = in.Close()
			}()
			assert.Nil(t, in.Seek(tt.args.pos))
			_, err := in.Read(make([]byte, tt.args.size))
			assert.Equal(t, ErrUnexpectedEOF, err)
		})
	}
}

func TestInput_LengthSnapshot(t *testing.T) {
	data := testPattern(100)
	path := writeTestFile(t, "00000205.cfe", data)
	in := openTestInput(t, path, 16, 0)
	defer func() {
		_ = in.Close()
	}()

	// Shrink the file behind the stream's back.
	assert.Nil(t, os.Truncate(path, 40))
	assert.Equal(t, int64(100), in.Length())

	// The missing range must fail loudly, not shrink quietly.
	assert.Nil(t, in.Seek(50))
	_, err := in.Read(make([]byte, 10))
	assert.Equal(t, ErrUnexpectedEOF, err)
}

func TestInput_CloneSeekRead(t *testing.T) {
	data := testPattern(100)
	path := writeTestFile(t, "00000206.fdt", data)
	in := openTestInput(t, path, 8, 7)
	defer func() {
		_ = in.Close()
	}()

	assert.Nil(t, in.Seek(50))
	clone, err := in.Clone()
	assert.Nil(t, err)
	defer func() {
		_ = clone.Close()
	}()
	assert.True(t, clone.IsClone())
	assert.False(t, in.IsClone())
	assert.Equal(t, int64(50), clone.FilePointer())

	// The clone rewinds and reads the whole file.
	assert.Nil(t, clone.Seek(0))
	got := make([]byte, 100)
	n, err := clone.Read(got)
	assert.Nil(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data, got)

	// The original is still where it was left.
	assert.Equal(t, int64(50), in.FilePointer())
	tail := make([]byte, 50)
	n, err = in.Read(tail)
	assert.Nil(t, err)
	assert.Equal(t, 50, n)
	assert.Equal(t, data[50:], tail)
}

func TestInput_CloneConcurrent(t *testing.T) {
	data := testPattern(1000)
	path := writeTestFile(t, "00000207.fdt", data)
	in := openTestInput(t, path, 16, 7)
	defer func() {
		_ = in.Close()
	}()

	type result struct {
		got []byte
		err error
	}
	ranges := [][2]int64{{0, 1000}, {500, 500}, {250, 250}, {999, 1}, {0, 17}, {983, 17}}
	results := make([]result, len(ranges))
	wg := sync.WaitGroup{}
	for i, r := range ranges {
		clone, err := in.Clone()
		assert.Nil(t, err)
		wg.Add(1)
		go func(i int, offset, size int64, c *Input) {
			defer wg.Done()
			defer func() {
				_ = c.Close()
			}()
			if err := c.Seek(offset); err != nil {
				results[i].err = err
				return
			}
			b := make([]byte, size)
			_, err := c.Read(b)
			results[i] = result{got: b, err: err}
		}(i, r[0], r[1], clone)
	}
	wg.Wait()

	for i, r := range ranges {
		assert.Nil(t, results[i].err)
		assert.Equal(t, data[r[0]:r[0]+r[1]], results[i].got)
	}
}

func TestInput_Close(t *testing.T) {
	path := writeTestFile(t, "00000208.cfs", testPattern(100))
	src, err := iofile.NewFileInput(path)
	assert.Nil(t, err)
	var released int
	src.SetOnRelease(func() {
		released++
	})
	in := NewInput(src, 8, 0)

	clone, err := in.Clone()
	assert.Nil(t, err)

	// Closing the original leaves the clone fully usable.
	assert.Nil(t, in.Close())
	assert.Nil(t, in.Close())
	assert.Equal(t, 0, released)

	_, err = in.Read(make([]byte, 1))
	assert.Equal(t, iofile.ErrClosed, err)
	assert.Equal(t, iofile.ErrClosed, in.Seek(0))
	_, err = in.Clone()
	assert.Equal(t, iofile.ErrClosed, err)
	assert.False(t, in.IsValid())

	assert.Nil(t, clone.Seek(10))
	b := make([]byte, 5)
	n, err := clone.Read(b)
	assert.Nil(t, err)
	assert.Equal(t, 5, n)

	// The handle goes only when the last holder does.
	assert.Nil(t, clone.Close())
	assert.Equal(t, 1, released)
}

func TestInput_LargeReadBypassesBuffer(t *testing.T) {
	data := testPattern(300)
	path := writeTestFile(t, "00000209.fdt", data)
	in := openTestInput(t, path, 8, 0)
	defer func() {
		_ = in.Close()
	}()

	// A few buffered bytes first, then a read far larger than the buffer.
	head := make([]byte, 3)
	n, err := in.Read(head)
	assert.Nil(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, data[:3], head)

	big := make([]byte, 297)
	n, err = in.Read(big)
	assert.Nil(t, err)
	assert.Equal(t, 297, n)
	assert.Equal(t, data[3:], big)
	assert.Equal(t, int64(300), in.FilePointer())

	_, err = in.ReadByte()
	assert.Equal(t, ErrUnexpectedEOF, err)
}
