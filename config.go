package indexstore

import (
	"indexstore/ds"
	"indexstore/stream"
)

// IOType represents different types of file io for reads: FileIO(standard
// file io), MMapIO(memory-mapped reads). Writes always use standard file io.
type IOType uint8

const (
	// FileIO standard file io.
	FileIO IOType = iota
	// MMapIO memory-mapped reads.
	MMapIO
)

type Config struct {
	Path       string // Directory path for storing index files on disk.
	BufferSize int    // Per-stream buffer capacity.
	ChunkSize  int64  // Max bytes moved in one physical read call.
	ShardCount int    // Shard count of the open-file registry. default 32
	IOType     IOType
}

func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		BufferSize: stream.DefaultBufferSize,
		ChunkSize:  stream.DefaultChunkSize,
		ShardCount: ds.DefaultShardCount,
		IOType:     FileIO,
	}
}
