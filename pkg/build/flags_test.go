// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"strings"
	"testing"
)

var origInfo Info

func TestMain(m *testing.M) {
	origInfo = *info
	exitCode := m.Run()
	*info = origInfo
	os.Exit(exitCode)
}

func setFlags(name, tm, commit, version string) {
	*info = origInfo
	buildName, buildTime, buildCommit, buildVersion = name, tm, commit, version
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		flags   [4]string
		wantErr []string
	}{
		{"Missing BuildName", [4]string{"", "2025-04-13", "abcdef123", "v1.0.0"}, []string{"BuildName is required"}},
		{"Missing BuildTime", [4]string{"spectra", "", "abcdef123", "v1.0.0"}, []string{"BuildTime is required"}},
		{"Missing Several", [4]string{"spectra", "", "", "v1.0.0"}, []string{"BuildTime is required", "BuildCommit is required"}},
		{"Success Case", [4]string{"spectra", "2025-04-13", "abcdef123", "v1.0.0"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setFlags(tt.flags[0], tt.flags[1], tt.flags[2], tt.flags[3])
			err := Initialize()

			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Initialize() unexpected error: %v", err)
				}
				got := GetBuildInfo()
				if got.Name != tt.flags[0] || got.Time != tt.flags[1] || got.Commit != tt.flags[2] || got.Version != tt.flags[3] {
					t.Errorf("GetBuildInfo() = %+v, want flags %v", got, tt.flags)
				}
				return
			}

			if err == nil {
				t.Fatal("Initialize() expected error, got nil")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Initialize() error = %q, want it to contain %q", err, want)
				}
			}
		})
	}
}

func TestInitializeKeepsDefaults(t *testing.T) {
	setFlags("", "", "", "")
	_ = Initialize()

	got := GetBuildInfo()
	if got.Name != "spectra" || got.Version != "dev" {
		t.Errorf("defaults overwritten: %+v", got)
	}
	if !strings.Contains(got.String(), "spectra dev") {
		t.Errorf("String() = %q", got.String())
	}
}
