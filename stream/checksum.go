package stream

import (
	"indexstore/util"
)

// ChecksumInput digests every byte it reads. It is strictly sequential:
// there is no Seek, since skipping bytes would leave a hole in the digest.
type ChecksumInput struct {
	in  *Input
	sum *util.Murmur128
}

// NewChecksumInput wraps in, digesting from its current position onward.
func NewChecksumInput(in *Input) *ChecksumInput {
	return &ChecksumInput{in: in, sum: util.NewMurmur128()}
}

func (c *ChecksumInput) Read(p []byte) (int, error) {
	n, err := c.in.Read(p)
	if n > 0 {
		if werr := c.sum.Write(p[:n]); werr != nil && err == nil {
			err = werr
		}
	}
	return n, err
}

func (c *ChecksumInput) ReadByte() (byte, error) {
	b, err := c.in.ReadByte()
	if err != nil {
		return 0, err
	}
	if err := c.sum.Write([]byte{b}); err != nil {
		return 0, err
	}
	return b, nil
}

// Skip reads and discards n bytes, keeping them in the digest.
func (c *ChecksumInput) Skip(n int64) error {
	buf := make([]byte, DefaultBufferSize)
	for n > 0 {
		chunk := n
		if chunk > int64(len(buf)) {
			chunk = int64(len(buf))
		}
		got, err := c.Read(buf[:chunk])
		if err != nil {
			return err
		}
		n -= int64(got)
	}
	return nil
}

// Checksum returns the two halves of the digest over all bytes read so far.
func (c *ChecksumInput) Checksum() (uint64, uint64) {
	return c.sum.Sum128()
}

func (c *ChecksumInput) FilePointer() int64 {
	return c.in.FilePointer()
}

func (c *ChecksumInput) Length() int64 {
	return c.in.Length()
}

func (c *ChecksumInput) Close() error {
	return c.in.Close()
}

// ChecksumOutput digests every byte it writes, so a file can carry its own
// integrity sum in a footer.
type ChecksumOutput struct {
	out *Output
	sum *util.Murmur128
}

// NewChecksumOutput wraps out, digesting from its current position onward.
func NewChecksumOutput(out *Output) *ChecksumOutput {
	return &ChecksumOutput{out: out, sum: util.NewMurmur128()}
}

func (c *ChecksumOutput) Write(p []byte) (int, error) {
	n, err := c.out.Write(p)
	if n > 0 {
		if werr := c.sum.Write(p[:n]); werr != nil && err == nil {
			err = werr
		}
	}
	return n, err
}

func (c *ChecksumOutput) WriteByte(b byte) error {
	if err := c.out.WriteByte(b); err != nil {
		return err
	}
	return c.sum.Write([]byte{b})
}

// Checksum returns the two halves of the digest over all bytes written so
// far.
func (c *ChecksumOutput) Checksum() (uint64, uint64) {
	return c.sum.Sum128()
}

// WriteChecksum appends the encoded digest to the stream and returns the
// number of bytes it added. The digest itself is not included in the sum.
func (c *ChecksumOutput) WriteChecksum() (int, error) {
	return c.out.Write(c.sum.EncodeSum128())
}

func (c *ChecksumOutput) FilePointer() int64 {
	return c.out.FilePointer()
}

func (c *ChecksumOutput) Flush() error {
	return c.out.Flush()
}

func (c *ChecksumOutput) Close() error {
	return c.out.Close()
}
