// Package hasher computes xxHash64 content digests of encoded images.
package hasher

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// DigestLen is the number of hex characters the report records: the full
// 64-bit sum.
const DigestLen = 16

// Digest returns the xxHash64 of data as hex, truncated to hexLen
// characters when 0 < hexLen < 16.
func Digest(data []byte, hexLen int) string {
	return format(xxhash.Sum64(data), hexLen)
}

// DigestReader hashes r to EOF.
func DigestReader(r io.Reader, hexLen int) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return format(h.Sum64(), hexLen), nil
}

// DigestSeeker hashes rs from its current position to EOF and seeks back,
// so the stream can still be identified and decoded afterwards.
func DigestSeeker(rs io.ReadSeeker, hexLen int) (sum string, err error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", fmt.Errorf("hash: tell: %w", err)
	}
	defer func() {
		if _, serr := rs.Seek(start, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("hash: rewind: %w", serr)
		}
	}()
	return DigestReader(rs, hexLen)
}

func format(v uint64, hexLen int) string {
	full := fmt.Sprintf("%016x", v)
	if hexLen > 0 && hexLen < len(full) {
		return full[:hexLen]
	}
	return full
}
