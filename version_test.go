package cellkit

import (
	"fmt"
	"testing"
)

func TestVersionConstants(t *testing.T) {
	want := fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
	if Version != want {
		t.Errorf("Version = %q, components say %q", Version, want)
	}
}

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	if info.Version != Version {
		t.Errorf("Info.Version = %q, want %q", info.Version, Version)
	}
	if info.Atomic {
		t.Error("Info.Atomic = true; the primitives are single-goroutine")
	}

	t.Logf("cellkit %s (%s)", info.Version, info.Model)
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		required string
		want     bool
	}{
		{"0.1.0", true},
		{"v0.1.0", true},
		{"v0.1", true},
		{"0.0.9", true},
		{"v0", true},
		{"0.1.1", false},
		{"0.2.0", false},
		{"1.0.0", false},
		{"not-a-version", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.required, func(t *testing.T) {
			if got := Compatible(tt.required); got != tt.want {
				t.Errorf("Compatible(%q) = %v, want %v", tt.required, got, tt.want)
			}
		})
	}
}
