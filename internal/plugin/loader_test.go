package plugin

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/AnyUserName/imgio/internal/capability"
	"github.com/AnyUserName/imgio/internal/imgerr"
)

func TestEnsureLoadedRunsFactoriesOnce(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry()
	_ = r.Register(Descriptor{
		ID:         "A",
		Extensions: []string{".a"},
		NewDecoder: func() (Decoder, error) {
			calls.Add(1)
			return nopDecoder{}, nil
		},
	})
	d, _ := r.LookupByID("A")
	l := NewLoader(capability.New("linux", capability.BuildFlags{}), nil)

	if l.Loaded(d) {
		t.Fatal("loaded before first use")
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := l.EnsureLoaded(d)
			if err != nil || c.Decoder == nil {
				t.Errorf("EnsureLoaded: %v %v", c, err)
			}
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("factory called %d times", n)
	}
	if !l.Loaded(d) {
		t.Error("not marked loaded")
	}
}

func TestEnsureLoadedMissingCapability(t *testing.T) {
	called := false
	r := NewRegistry()
	_ = r.Register(Descriptor{
		ID:         "JPEG2000",
		Extensions: []string{".jp2"},
		Requires:   []capability.Key{capability.Codec("jpg_2000")},
		NewDecoder: func() (Decoder, error) {
			called = true
			return nopDecoder{}, nil
		},
	})
	_ = r.Register(Descriptor{ID: "B", Extensions: []string{".b"}, NewDecoder: newNopDecoder})

	l := NewLoader(capability.New("linux", capability.BuildFlags{}), nil)
	jp2, _ := r.LookupByID("JPEG2000")

	_, err := l.EnsureLoaded(jp2)
	if !errors.Is(err, imgerr.ErrCodecUnavailable) {
		t.Fatalf("got %v, want ErrCodecUnavailable", err)
	}
	if called {
		t.Error("factory ran although the capability is absent")
	}
	if l.Loaded(jp2) {
		t.Error("failed plugin reported loaded")
	}

	// Other formats are unaffected.
	b, _ := r.LookupByID("B")
	if _, err := l.EnsureLoaded(b); err != nil {
		t.Errorf("B: %v", err)
	}
}

func TestEnsureLoadedFactoryFailureIsScoped(t *testing.T) {
	boom := errors.New("libfoo.so: cannot open shared object file")
	var calls int
	r := NewRegistry()
	_ = r.Register(Descriptor{
		ID:         "A",
		Extensions: []string{".a"},
		NewDecoder: func() (Decoder, error) {
			calls++
			return nil, boom
		},
	})
	d, _ := r.LookupByID("A")
	l := NewLoader(nil, nil)

	for i := 0; i < 3; i++ {
		_, err := l.EnsureLoaded(d)
		if !errors.Is(err, imgerr.ErrCodecUnavailable) || !errors.Is(err, boom) {
			t.Fatalf("attempt %d: got %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("factory called %d times, failure should be cached", calls)
	}
}

func TestEnsureLoadedNewDescriptorAfterReplace(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Descriptor{ID: "A", Extensions: []string{".a"},
		NewDecoder: func() (Decoder, error) { return nil, errors.New("old") }})
	old, _ := r.LookupByID("A")
	l := NewLoader(nil, nil)
	if _, err := l.EnsureLoaded(old); err == nil {
		t.Fatal("expected failure")
	}

	_ = r.Register(Descriptor{ID: "A", Extensions: []string{".a"}, NewDecoder: newNopDecoder})
	cur, _ := r.LookupByID("A")
	if _, err := l.EnsureLoaded(cur); err != nil {
		t.Errorf("replacement descriptor: %v", err)
	}
	if l.Loaded(old) {
		t.Error("replaced descriptor reported loaded")
	}
	if !l.Loaded(cur) {
		t.Error("replacement not reported loaded")
	}
	l.mu.Lock()
	n := len(l.states)
	l.mu.Unlock()
	if n != 1 {
		t.Errorf("load states kept: %d, want 1", n)
	}
}
