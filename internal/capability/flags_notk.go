//go:build !vips && notkinter

package capability

// Compiled holds the flags of this binary.
var Compiled = BuildFlags{Native: false, GUI: false}
