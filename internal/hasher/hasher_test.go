package hasher

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestDigestMatchesReader(t *testing.T) {
	data := []byte("\x89PNG\r\n\x1a\n some payload")
	want := Digest(data, 0)
	if len(want) != DigestLen {
		t.Fatalf("digest length: got %d, want %d", len(want), DigestLen)
	}
	got, err := DigestReader(bytes.NewReader(data), 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("reader digest %s != %s", got, want)
	}
}

func TestDigestTruncates(t *testing.T) {
	full := Digest([]byte("abc"), 0)
	if short := Digest([]byte("abc"), 8); short != full[:8] {
		t.Errorf("truncated: got %s, want %s", short, full[:8])
	}
	if long := Digest([]byte("abc"), 40); long != full {
		t.Errorf("over-long hexLen: got %s", long)
	}
}

func TestKnownValue(t *testing.T) {
	// xxHash64 of the empty input with seed 0.
	if got := Digest(nil, 0); got != "ef46db3751d8e999" {
		t.Errorf("empty digest: got %s", got)
	}
}

func TestDigestSeekerRestoresPosition(t *testing.T) {
	r := strings.NewReader("0123456789")
	if _, err := r.Seek(3, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	got, err := DigestSeeker(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := Digest([]byte("3456789"), 0); got != want {
		t.Errorf("digest from offset: got %s, want %s", got, want)
	}
	if pos, _ := r.Seek(0, io.SeekCurrent); pos != 3 {
		t.Errorf("position after hash: got %d, want 3", pos)
	}
}
