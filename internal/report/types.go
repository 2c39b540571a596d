// Package report describes the JSON summary of a batch conversion.
package report

// SchemaVersion is the current report schema version.
const SchemaVersion = 1

// Report is the top-level output of imgio convert.
type Report struct {
	Schema       int       `json:"schema"`
	ToolVersion  string    `json:"tool_version"`
	GeneratedAt  string    `json:"generated_at"`
	TargetFormat string    `json:"target_format"`
	Run          *RunInfo  `json:"run,omitempty"`
	Entries      []Entry   `json:"entries"`
	Failures     []Failure `json:"failures,omitempty"`
	Stats        Stats     `json:"stats"`
}

// RunInfo captures run parameters for diagnostics.
type RunInfo struct {
	Workers    int    `json:"workers"`
	PrefixSize int    `json:"prefix_size"`
	Native     bool   `json:"native"` // native codec backend compiled in
	GOOS       string `json:"goos"`
}

// Entry describes one converted input.
type Entry struct {
	Source      string `json:"source"` // relative to the input directory
	Format      string `json:"format"` // detected format ID
	ByExtension bool   `json:"by_extension,omitempty"`
	Mode        string `json:"mode"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	InputSize   int64  `json:"input_size"`
	InputHash   string `json:"input_hash"`
	Output      Output `json:"output"`
}

// Output is the encoded result of one entry.
type Output struct {
	Path string `json:"path"` // relative to the output directory
	Size int64  `json:"size"`
	Hash string `json:"hash"` // xxhash64, 16 hex chars
}

// Failure records an input that could not be converted.
type Failure struct {
	Source string `json:"source"`
	Kind   string `json:"kind,omitempty"` // imgerr kind, empty for I/O errors
	Error  string `json:"error"`
}

// Stats aggregates run metrics.
type Stats struct {
	TotalInputBytes  int64          `json:"total_input_bytes"`
	TotalOutputBytes int64          `json:"total_output_bytes"`
	Converted        int            `json:"converted"`
	Failed           int            `json:"failed"`
	ByFormat         map[string]int `json:"by_format,omitempty"` // detected format -> count
}
