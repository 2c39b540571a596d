package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// hclFile is the on-disk shape of a config file. Pointer fields tell an
// absent attribute apart from a zero value.
type hclFile struct {
	PrefixSize *int      `hcl:"prefix_size,optional"`
	Lazy       *bool     `hcl:"lazy,optional"`
	Formats    *[]string `hcl:"formats,optional"`
	Workers    *int      `hcl:"workers,optional"`
	Log        *hclLog   `hcl:"log,block"`
	Save       *hclSave  `hcl:"save,block"`
}

type hclLog struct {
	Level       *string   `hcl:"level,optional"`
	Format      *string   `hcl:"format,optional"`
	Outputs     *[]string `hcl:"outputs,optional"`
	Development *bool     `hcl:"development,optional"`
}

type hclSave struct {
	Quality  *int  `hcl:"quality,optional"`
	Lossless *bool `hcl:"lossless,optional"`
}

// Load reads the HCL file at path over Default and validates the result.
func Load(path string) (Config, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, diags)
	}
	return decode(f.Body, path)
}

// Parse is Load for in-memory content; filename is used in diagnostics.
func Parse(src []byte, filename string) (Config, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", filename, diags)
	}
	return decode(f.Body, filename)
}

func decode(body hcl.Body, name string) (Config, error) {
	var raw hclFile
	if diags := gohcl.DecodeBody(body, nil, &raw); diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode config %s: %w", name, diags)
	}
	c := Default()
	raw.apply(&c)
	if err := Validate(c); err != nil {
		return Config{}, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

func (r *hclFile) apply(c *Config) {
	set(&c.PrefixSize, r.PrefixSize)
	set(&c.Lazy, r.Lazy)
	set(&c.Formats, r.Formats)
	set(&c.Workers, r.Workers)
	if r.Log != nil {
		set(&c.Log.Level, r.Log.Level)
		set(&c.Log.Format, r.Log.Format)
		set(&c.Log.Outputs, r.Log.Outputs)
		set(&c.Log.Development, r.Log.Development)
	}
	if r.Save != nil {
		set(&c.Save.Quality, r.Save.Quality)
		set(&c.Save.Lossless, r.Save.Lossless)
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
