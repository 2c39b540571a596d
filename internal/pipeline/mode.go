package pipeline

import (
	"image"
	"image/color"
)

// Pixel modes, named the way the rest of the imaging world names them.
const (
	ModeL       = "L"       // 8-bit gray
	ModeI16     = "I;16"    // 16-bit gray
	ModeP       = "P"       // palette
	ModeA       = "A"       // alpha only
	ModeRGB     = "RGB"     // 8-bit color, no alpha
	ModeRGBA    = "RGBA"    // 8-bit color with alpha
	ModeRGB16   = "RGB;16"  // 16-bit color, no alpha
	ModeRGBA16  = "RGBA;16" // 16-bit color with alpha
	ModeCMYK    = "CMYK"
	ModeUnknown = "unknown"
)

// ModeOfModel maps a decoder-reported color model to a mode. Decoders report
// color.RGBAModel for data without an alpha channel and color.NRGBAModel for
// data with one.
func ModeOfModel(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return ModeP
	}
	switch m {
	case color.GrayModel:
		return ModeL
	case color.Gray16Model:
		return ModeI16
	case color.AlphaModel, color.Alpha16Model:
		return ModeA
	case color.YCbCrModel, color.RGBAModel:
		return ModeRGB
	case color.NYCbCrAModel, color.NRGBAModel:
		return ModeRGBA
	case color.RGBA64Model:
		return ModeRGB16
	case color.NRGBA64Model:
		return ModeRGBA16
	case color.CMYKModel:
		return ModeCMYK
	}
	return ModeUnknown
}

// ModeOf reports the mode of an in-memory image from its color model.
func ModeOf(img image.Image) string {
	return ModeOfModel(img.ColorModel())
}
