package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/color/palette"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/AnyUserName/imgio/internal/capability"
	"github.com/AnyUserName/imgio/internal/formats"
	"github.com/AnyUserName/imgio/internal/imgerr"
)

func newDefault(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewDefault(Options{})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func rgbImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 20), G: uint8(y * 20), B: 120, A: 255})
		}
	}
	return img
}

func grayImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	return img
}

func palettedImage(w, h int) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 200)
	}
	return img
}

func translucentImage(w, h int) *image.NRGBA {
	img := rgbImage(w, h)
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
	return img
}

func TestSaveOpenRoundTrip(t *testing.T) {
	p := newDefault(t)
	// mode is what the written file declares, which depends on the writer:
	// PNG and BMP drop an all-opaque alpha channel, TIFF keeps it.
	tests := []struct {
		format string
		src    image.Image
		mode   string
		exact  bool
	}{
		{formats.PNG, rgbImage(7, 5), ModeRGB, true},
		{formats.PNG, grayImage(7, 5), ModeL, true},
		{formats.PNG, translucentImage(7, 5), ModeRGBA, true},
		{formats.TIFF, rgbImage(9, 4), ModeRGBA, true},
		{formats.TIFF, grayImage(9, 4), ModeL, true},
		{formats.BMP, rgbImage(6, 6), ModeRGB, true},
		{formats.GIF, palettedImage(8, 3), ModeP, true},
		{formats.JPEG, rgbImage(16, 8), ModeRGB, false},
		{formats.JPEG, grayImage(16, 8), ModeL, false},
	}
	for _, tt := range tests {
		wantMode := tt.mode
		t.Run(tt.format+"/"+wantMode, func(t *testing.T) {
			var buf bytes.Buffer
			if err := p.Save(tt.src, &buf, SaveOptions{Format: tt.format, Quality: 95}); err != nil {
				t.Fatalf("save: %v", err)
			}

			im, err := p.Open(bytes.NewReader(buf.Bytes()), OpenOptions{})
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if im.FormatID() != tt.format {
				t.Errorf("format: got %s, want %s", im.FormatID(), tt.format)
			}
			b := tt.src.Bounds()
			if im.Width() != b.Dx() || im.Height() != b.Dy() {
				t.Errorf("size: got %dx%d, want %dx%d", im.Width(), im.Height(), b.Dx(), b.Dy())
			}
			if im.Mode() != wantMode {
				t.Errorf("mode: got %s, want %s", im.Mode(), wantMode)
			}
			if !tt.exact {
				return
			}
			got, err := im.Pixels()
			if err != nil {
				t.Fatal(err)
			}
			for y := 0; y < b.Dy(); y++ {
				for x := 0; x < b.Dx(); x++ {
					if !sameColor(tt.src.At(x, y), got.At(x, y)) {
						t.Fatalf("pixel (%d,%d): got %v, want %v", x, y, got.At(x, y), tt.src.At(x, y))
					}
				}
			}
		})
	}
}

func sameColor(a, b color.Color) bool {
	n1 := color.NRGBAModel.Convert(a).(color.NRGBA)
	n2 := color.NRGBAModel.Convert(b).(color.NRGBA)
	return n1 == n2
}

func TestOpenCodecUnavailable(t *testing.T) {
	caps := capability.New(runtime.GOOS, capability.BuildFlags{GUI: true})
	p, err := NewDefault(Options{Capabilities: caps})
	if err != nil {
		t.Fatal(err)
	}
	// JPEG2000 codestream marker followed by junk.
	data := append([]byte{0xFF, 0x4F, 0xFF, 0x51}, bytes.Repeat([]byte{0x01}, 60)...)

	_, err = p.Open(bytes.NewReader(data), OpenOptions{})
	if !errors.Is(err, imgerr.ErrCodecUnavailable) {
		t.Fatalf("got %v, want ErrCodecUnavailable", err)
	}
	if errors.Is(err, imgerr.ErrUnrecognizedFormat) {
		t.Errorf("codec-unavailable error must not read as unrecognized: %v", err)
	}
}

func TestOpenUnrecognizedRestoresPosition(t *testing.T) {
	p := newDefault(t)
	r := bytes.NewReader([]byte("xxxxnot an image at all, really"))
	if _, err := r.Seek(4, io.SeekStart); err != nil {
		t.Fatal(err)
	}

	_, err := p.Open(r, OpenOptions{})
	if !errors.Is(err, imgerr.ErrUnrecognizedFormat) {
		t.Fatalf("got %v, want ErrUnrecognizedFormat", err)
	}
	if pos, _ := r.Seek(0, io.SeekCurrent); pos != 4 {
		t.Errorf("position after failure: got %d, want 4", pos)
	}
}

func TestOpenExtensionFallbackSurfacesDecodeError(t *testing.T) {
	p := newDefault(t)
	r := bytes.NewReader(make([]byte, 64))

	_, err := p.Open(r, OpenOptions{Filename: "photo.png"})
	if !errors.Is(err, imgerr.ErrMalformedContent) {
		t.Fatalf("got %v, want ErrMalformedContent", err)
	}
	if pos, _ := r.Seek(0, io.SeekCurrent); pos != 0 {
		t.Errorf("position after failure: got %d, want 0", pos)
	}
}

func TestOpenAtOffset(t *testing.T) {
	p := newDefault(t)
	var buf bytes.Buffer
	buf.WriteString("HEADER--")
	if err := p.Save(rgbImage(3, 2), &buf, SaveOptions{Format: formats.PNG}); err != nil {
		t.Fatal(err)
	}
	r := bytes.NewReader(buf.Bytes())
	if _, err := r.Seek(8, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	im, err := p.Open(r, OpenOptions{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if im.FormatID() != formats.PNG || im.Width() != 3 {
		t.Errorf("got %s %dx%d", im.FormatID(), im.Width(), im.Height())
	}
}

func TestOpenNonSeekableReader(t *testing.T) {
	p := newDefault(t)
	var buf bytes.Buffer
	if err := p.Save(grayImage(4, 4), &buf, SaveOptions{Format: formats.GIF}); err != nil {
		t.Fatal(err)
	}
	im, err := p.Open(io.MultiReader(&buf), OpenOptions{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if im.FormatID() != formats.GIF {
		t.Errorf("format: got %s", im.FormatID())
	}
}

func TestOpenFormatsFilter(t *testing.T) {
	p := newDefault(t)
	var buf bytes.Buffer
	if err := p.Save(rgbImage(2, 2), &buf, SaveOptions{Format: formats.PNG}); err != nil {
		t.Fatal(err)
	}

	_, err := p.Open(bytes.NewReader(buf.Bytes()), OpenOptions{Formats: []string{"jpeg", "gif"}})
	if !errors.Is(err, imgerr.ErrUnrecognizedFormat) {
		t.Fatalf("disallowed format: got %v", err)
	}
	if _, err := p.Open(bytes.NewReader(buf.Bytes()), OpenOptions{Formats: []string{"png"}}); err != nil {
		t.Fatalf("allowed format: %v", err)
	}
}

func TestDeclaredModeSurvivesLoad(t *testing.T) {
	p := newDefault(t)
	path := filepath.Join(t.TempDir(), "opaque.tif")
	// Opaque pixels in a layout with an alpha channel.
	if err := p.SaveFile(rgbImage(4, 4), path, SaveOptions{}); err != nil {
		t.Fatal(err)
	}

	eager, err := p.OpenFile(path, OpenOptions{})
	if err != nil {
		t.Fatalf("eager open: %v", err)
	}
	lazy, err := p.OpenFile(path, OpenOptions{Lazy: true})
	if err != nil {
		t.Fatalf("lazy open: %v", err)
	}
	defer lazy.Close()
	before := lazy.Mode()
	if err := lazy.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	for name, got := range map[string]string{
		"eager":       eager.Mode(),
		"lazy header": before,
		"lazy loaded": lazy.Mode(),
	} {
		if got != ModeRGBA {
			t.Errorf("%s: mode %s, want %s", name, got, ModeRGBA)
		}
	}
}

func TestOpenLazy(t *testing.T) {
	p := newDefault(t)
	path := filepath.Join(t.TempDir(), "lazy.png")
	if err := p.SaveFile(rgbImage(5, 3), path, SaveOptions{}); err != nil {
		t.Fatal(err)
	}

	im, err := p.OpenFile(path, OpenOptions{Lazy: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if im.Loaded() {
		t.Fatal("lazy handle decoded eagerly")
	}
	if im.Width() != 5 || im.Height() != 3 {
		t.Errorf("header size: %dx%d", im.Width(), im.Height())
	}
	if err := im.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !im.Loaded() || im.Mode() != ModeRGB {
		t.Errorf("after load: loaded=%v mode=%s", im.Loaded(), im.Mode())
	}
	if err := im.Close(); err != nil {
		t.Errorf("close after load: %v", err)
	}
	if _, err := im.Pixels(); err != nil {
		t.Errorf("pixels after close of loaded handle: %v", err)
	}
}

func TestLazyCloseBeforeLoad(t *testing.T) {
	p := newDefault(t)
	path := filepath.Join(t.TempDir(), "a.tiff")
	if err := p.SaveFile(grayImage(4, 4), path, SaveOptions{}); err != nil {
		t.Fatal(err)
	}
	im, err := p.OpenFile(path, OpenOptions{Lazy: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := im.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := im.Pixels(); !errors.Is(err, ErrClosed) {
		t.Errorf("pixels after close: got %v, want ErrClosed", err)
	}
}

func TestSaveUnknownFormat(t *testing.T) {
	p := newDefault(t)
	var buf bytes.Buffer
	err := p.Save(rgbImage(2, 2), &buf, SaveOptions{Format: "XYZ"})
	if !errors.Is(err, imgerr.ErrUnsupportedOperation) {
		t.Fatalf("got %v, want ErrUnsupportedOperation", err)
	}
	if buf.Len() != 0 {
		t.Errorf("%d bytes written on failure", buf.Len())
	}
}

func TestSaveReadOnlyWebP(t *testing.T) {
	if capability.Compiled.Native {
		t.Skip("native backend writes WebP")
	}
	p := newDefault(t)
	var buf bytes.Buffer
	err := p.Save(rgbImage(2, 2), &buf, SaveOptions{Format: formats.WEBP})
	if !errors.Is(err, imgerr.ErrUnsupportedOperation) {
		t.Fatalf("got %v, want ErrUnsupportedOperation", err)
	}
	if buf.Len() != 0 {
		t.Errorf("%d bytes written on failure", buf.Len())
	}
}

func TestSaveCodecUnavailable(t *testing.T) {
	caps := capability.New(runtime.GOOS, capability.BuildFlags{})
	p, err := NewDefault(Options{Capabilities: caps})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	err = p.Save(rgbImage(2, 2), &buf, SaveOptions{Format: formats.JPEG2000})
	if !errors.Is(err, imgerr.ErrCodecUnavailable) {
		t.Fatalf("got %v, want ErrCodecUnavailable", err)
	}
}

func TestSaveFileByExtension(t *testing.T) {
	p := newDefault(t)
	path := filepath.Join(t.TempDir(), "out.TIF")
	if err := p.SaveFile(rgbImage(3, 3), path, SaveOptions{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	im, err := p.OpenFile(path, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if im.FormatID() != formats.TIFF {
		t.Errorf("format: got %s", im.FormatID())
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o644 {
		t.Errorf("mode: got %v", info.Mode().Perm())
	}
}

func TestSaveFileFailureLeavesDestination(t *testing.T) {
	p := newDefault(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "keep.dat")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := p.SaveFile(rgbImage(2, 2), path, SaveOptions{})
	if !errors.Is(err, imgerr.ErrUnsupportedOperation) {
		t.Fatalf("got %v, want ErrUnsupportedOperation", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "original" {
		t.Errorf("destination changed: %q", data)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestImageSaveForwards(t *testing.T) {
	p := newDefault(t)
	im := p.FromImage(grayImage(3, 2))
	if im.Mode() != ModeL || im.FormatID() != "" {
		t.Errorf("in-memory handle: mode=%s format=%q", im.Mode(), im.FormatID())
	}
	var buf bytes.Buffer
	if err := im.Save(&buf, SaveOptions{Format: formats.PNG}); err != nil {
		t.Fatal(err)
	}
	got, err := p.Open(&buf, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode() != ModeL {
		t.Errorf("mode: got %s", got.Mode())
	}
}
