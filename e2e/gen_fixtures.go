//go:build ignore

// gen_fixtures writes a small fixture tree for the convert smoke test: one
// image per writable format, a file whose name disagrees with its content
// and a truncated file.
// Usage: go run gen_fixtures.go <output_dir>
package main

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/AnyUserName/imgio/internal/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	if err := os.MkdirAll(filepath.Join(dir, "cards"), 0o755); err != nil {
		fail(err)
	}

	p, err := pipeline.NewDefault(pipeline.Options{})
	if err != nil {
		fail(err)
	}

	written := 0
	write := func(name string, img image.Image, opts pipeline.SaveOptions) {
		err := p.SaveFile(img, filepath.Join(dir, filepath.FromSlash(name)), opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gen_fixtures: %s not written: %v\n", name, err)
			return
		}
		written++
	}

	write("banner.jpg", gradient(400, 225), pipeline.SaveOptions{Quality: 85})
	for i := 1; i <= 3; i++ {
		write(fmt.Sprintf("cards/card-%d.png", i), framed(200, 150, uint8(i*60)), pipeline.SaveOptions{})
	}
	write("logo.png", alphaGradient(100, 100), pipeline.SaveOptions{})
	write("scan.tiff", gray(120, 80), pipeline.SaveOptions{})
	write("icon.gif", framed(32, 32, 90), pipeline.SaveOptions{})
	write("legacy.bmp", gradient(64, 48), pipeline.SaveOptions{})
	// WebP and JPEG2000 need the native backend and are skipped without it.
	write("photo.webp", gradient(160, 90), pipeline.SaveOptions{Quality: 80})
	write("photo.jp2", gradient(160, 90), pipeline.SaveOptions{})

	// A PNG stored under a JPEG name; identification must go by content.
	write("misnamed.jpg", gradient(50, 50), pipeline.SaveOptions{Format: "PNG"})

	// A PNG signature with nothing behind it.
	if err := os.WriteFile(filepath.Join(dir, "truncated.png"), []byte("\x89PNG\r\n\x1a\n"), 0o644); err != nil {
		fail(err)
	}
	written++

	fmt.Fprintf(os.Stderr, "gen_fixtures: %d files in %s\n", written, dir)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "gen_fixtures:", err)
	os.Exit(1)
}

// paint fills a w x h NRGBA image with the color f returns per pixel.
func paint(w, h int, f func(x, y int) color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, f(x, y))
		}
	}
	return img
}

func gradient(w, h int) *image.NRGBA {
	return paint(w, h, func(x, y int) color.NRGBA {
		return color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255}
	})
}

func alphaGradient(w, h int) *image.NRGBA {
	return paint(w, h, func(x, _ int) color.NRGBA {
		return color.NRGBA{R: 200, G: 50, B: 50, A: uint8(x * 255 / w)}
	})
}

func framed(w, h int, base uint8) *image.NRGBA {
	return paint(w, h, func(x, y int) color.NRGBA {
		if min(x, y) < 4 || x >= w-4 || y >= h-4 {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{R: base, G: base + 40, B: base + 80, A: 255}
	})
}

func gray(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		x, y := i%w, i/w
		img.Pix[i] = uint8((x + y) * 255 / (w + h))
	}
	return img
}
