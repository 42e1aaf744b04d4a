package moviehash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ChunkSize is the number of bytes sampled from each end of a file.
const ChunkSize = 64 * 1024

var (
	// ErrTooSmallInput reports a stream shorter than two chunks.
	ErrTooSmallInput = errors.New("moviehash: input smaller than two chunks")
	// ErrShortRead reports a chunk that could not be read in full.
	ErrShortRead = errors.New("moviehash: short read")
	// ErrInvalidChunkSize reports a chunk size that is not a positive multiple of 8.
	ErrInvalidChunkSize = errors.New("moviehash: chunk size must be a positive multiple of 8")
	// ErrNotRegular reports a path that is not a regular file.
	ErrNotRegular = errors.New("moviehash: not a regular file")
)

// Fingerprint is the 64-bit content checksum of a file.
type Fingerprint uint64

// String renders the full value as 16 zero-padded lowercase hex digits.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// Short renders the low 32 bits as 8 hex digits. Only meant for display next
// to tools that print the truncated form.
func (f Fingerprint) Short() string {
	return fmt.Sprintf("%08x", uint64(f)&0xffffffff)
}

// ParseFingerprint parses a hex rendered fingerprint. Up to 16 digits are
// accepted; shorter values are treated as zero padded.
func ParseFingerprint(value string) (Fingerprint, error) {
	value = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), "0x")
	if value == "" || len(value) > 16 {
		return 0, fmt.Errorf("moviehash: invalid fingerprint %q", value)
	}
	parsed, err := strconv.ParseUint(value, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("moviehash: invalid fingerprint %q: %w", value, err)
	}
	return Fingerprint(parsed), nil
}

// Hasher computes fingerprints with a fixed chunk size.
type Hasher struct {
	chunkSize int64
}

// NewHasher returns a Hasher sampling chunkSize bytes from each end. Anything
// other than the default is only useful for tests and experiments: results
// will not match the lookup service.
func NewHasher(chunkSize int) (*Hasher, error) {
	if chunkSize <= 0 || chunkSize%8 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, chunkSize)
	}
	return &Hasher{chunkSize: int64(chunkSize)}, nil
}

var defaultHasher = &Hasher{chunkSize: ChunkSize}

// Hash fingerprints r using the default chunk size. size must be the total
// length of the stream.
func Hash(r io.ReadSeeker, size int64) (Fingerprint, error) {
	return defaultHasher.Hash(r, size)
}

// ChunkSize reports the number of bytes read from each end of a stream.
func (h *Hasher) ChunkSize() int {
	return int(h.chunkSize)
}

// MinSize is the smallest stream length the hasher accepts.
func (h *Hasher) MinSize() int64 {
	return 2 * h.chunkSize
}

// Hash fingerprints r, whose total length is size. The read cursor is left at
// an unspecified position.
func (h *Hasher) Hash(r io.ReadSeeker, size int64) (Fingerprint, error) {
	if size < h.MinSize() {
		return 0, fmt.Errorf("%w: %d bytes, need at least %d", ErrTooSmallInput, size, h.MinSize())
	}

	buf := make([]byte, 2*h.chunkSize)
	if err := h.readChunk(r, 0, buf[:h.chunkSize]); err != nil {
		return 0, err
	}
	if err := h.readChunk(r, size-h.chunkSize, buf[h.chunkSize:]); err != nil {
		return 0, err
	}

	return Fingerprint(sumWords(buf) + uint64(size)), nil
}

func (h *Hasher) readChunk(r io.ReadSeeker, offset int64, dst []byte) error {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek to %d: %w", ErrShortRead, offset, err)
	}
	n, err := io.ReadFull(r, dst)
	if err != nil {
		return fmt.Errorf("%w: read %d of %d bytes at offset %d: %w", ErrShortRead, n, len(dst), offset, err)
	}
	return nil
}

// sumWords adds every little-endian uint64 in buf with wrapping arithmetic.
// len(buf) must be a multiple of 8.
func sumWords(buf []byte) uint64 {
	var sum uint64
	for i := 0; i+8 <= len(buf); i += 8 {
		sum += binary.LittleEndian.Uint64(buf[i : i+8])
	}
	return sum
}

// HashFile opens path on a private handle and fingerprints it. The file
// length is returned alongside the fingerprint.
func HashFile(path string) (Fingerprint, int64, error) {
	return defaultHasher.HashFile(path)
}

// HashFile opens path on a private handle and fingerprints it.
func (h *Hasher) HashFile(path string) (Fingerprint, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return 0, 0, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	size := info.Size()

	adviseRandom(file)

	fp, err := h.Hash(file, size)
	if err != nil {
		return 0, size, err
	}
	return fp, size, nil
}
