package capability

// requirement names the build flag an entry depends on.
type requirement int

const (
	always requirement = iota
	needsNative
	needsGUI
)

type entry struct {
	key      Key
	requires requirement
	// excludedOn lists every GOOS on which the entry is never present,
	// regardless of build flags.
	excludedOn []string
}

func (e entry) available(goos string, flags BuildFlags) bool {
	for _, excluded := range e.excludedOn {
		if excluded == goos {
			return false
		}
	}
	switch e.requires {
	case needsNative:
		return flags.Native
	case needsGUI:
		return flags.GUI
	}
	return true
}

// entries is the complete capability table. Platform exclusions are listed
// per entry; nothing is derived. Names are the ones a full build is expected
// to report, whether or not this binary links the library behind them.
var entries = []entry{
	{key: Module("pil")},
	{key: Module("tkinter"), requires: needsGUI},
	{key: Module("freetype2")},
	{key: Module("littlecms2")},
	{key: Module("webp")},

	{key: Codec("jpg")},
	{key: Codec("jpg_2000"), requires: needsNative},
	{key: Codec("zlib")},
	{key: Codec("libtiff")},

	{key: Feature("webp_anim"), requires: needsNative},
	{key: Feature("webp_mux"), requires: needsNative},
	{key: Feature("transp_webp")},
	// No system text shaping on ios and raqm cannot be bundled there;
	// fribidi and harfbuzz only ship alongside raqm.
	{key: Feature("raqm"), requires: needsNative, excludedOn: []string{"ios"}},
	{key: Feature("fribidi"), requires: needsNative, excludedOn: []string{"ios"}},
	{key: Feature("harfbuzz"), requires: needsNative, excludedOn: []string{"ios"}},
	{key: Feature("libjpeg_turbo"), requires: needsNative},
	{key: Feature("zlib_ng")},
	{key: Feature("xcb"), requires: needsNative, excludedOn: []string{"windows"}},
}
