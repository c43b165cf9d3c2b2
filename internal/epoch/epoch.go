// Package epoch holds the naming conventions shared by the build and run
// wrappers.
package epoch

import (
	"fmt"
	"strconv"
)

// PhotonsFlag is the Makefile flag enabling the QED feature set.
const PhotonsFlag = "PHOTONS"

// Dims selects the 1D, 2D or 3D variant of EPOCH.
type Dims int

// Validate reports whether d is one of 1, 2 or 3.
func (d Dims) Validate() error {
	if d < 1 || d > 3 {
		return fmt.Errorf("invalid dimensionality %d: must be 1, 2 or 3", int(d))
	}
	return nil
}

func (d Dims) String() string {
	return strconv.Itoa(int(d))
}

// SourceDir is the directory under the EPOCH checkout holding the Makefile
// for d, e.g. "epoch2d". The build leaves its binary at SourceDir/bin/SourceDir.
func SourceDir(d Dims) string {
	return fmt.Sprintf("epoch%dd", int(d))
}

// ExeName is the installed executable name: epoch_{d}d, with a _photons
// suffix when the QED features are compiled in.
func ExeName(d Dims, photons bool) string {
	name := fmt.Sprintf("epoch_%dd", int(d))
	if photons {
		name += "_photons"
	}
	return name
}

// BuildFlags returns the Makefile flags needed for the requested features.
func BuildFlags(photons bool) []string {
	if photons {
		return []string{PhotonsFlag}
	}
	return nil
}
