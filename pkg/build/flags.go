// SPDX-License-Identifier: MIT
//
// Package build carries the metadata stamped into the spectra binary at link
// time:
//
//	go build -ldflags "-X spectra/pkg/build.buildName=spectra \
//	  -X spectra/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds run without ldflags; Initialize reports which values are
// missing and the defaults below stay in place.
package build

import (
	"errors"
	"fmt"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats the info for --version output.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var info = &Info{
	Name:        "spectra",
	Description: "Real-time spectral analysis and audio-reactive pattern generator",
	Time:        "unknown",
	Commit:      "unknown",
	Version:     "dev",
}

// Initialize copies every ldflags value that was set into the build info and
// returns an error naming those that were not. The info is usable either way.
func Initialize() error {
	var errs []error
	set := func(dst *string, src, flag string) {
		if src == "" {
			errs = append(errs, fmt.Errorf("%s is required", flag))
			return
		}
		*dst = src
	}

	set(&info.Name, buildName, "BuildName")
	set(&info.Time, buildTime, "BuildTime")
	set(&info.Commit, buildCommit, "BuildCommit")
	set(&info.Version, buildVersion, "BuildVersion")

	return errors.Join(errs...)
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() *Info {
	return info
}
