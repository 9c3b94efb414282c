package snapshot

import (
	"fmt"
	"io"

	"github.com/zeebo/xxh3"
	"golang.org/x/exp/mmap"
)

const digestChunkSize = 1 << 26 // 64 MiB per memory-mapped read

// FileDigest returns the hex xxh3-128 digest of a file's content.
func FileDigest(path string) (string, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file %q: %w", path, err)
	}
	defer r.Close()

	h := xxh3.New()
	size := r.Len()
	buf := make([]byte, digestChunkSize)

	for off := 0; off < size; off += digestChunkSize {
		n := digestChunkSize
		if off+n > size {
			n = size - off
		}
		read, err := r.ReadAt(buf[:n], int64(off))
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("read chunk at %d in %q: %w", off, path, err)
		}
		h.Write(buf[:read])
	}

	sum := h.Sum128()
	return fmt.Sprintf("%x", sum.Bytes()), nil
}
