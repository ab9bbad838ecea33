package state

import (
	"fmt"

	hashiver "github.com/hashicorp/go-version"
)

// MakeVersion packs a (major, minor) pair the way every component's
// marshal envelope encodes its version tag.
func MakeVersion(major, minor uint16) uint32 {
	return uint32(major)<<16 | uint32(minor)
}

func versionString(tag uint32) string {
	return fmt.Sprintf("%d.%d.0", tag>>16, tag&0xffff)
}

// CheckCompatible implements §7's re-exec compatibility policy: an
// envelope tagged with the same major version as want is accepted even if
// its minor version differs (a newer image reading older state, or vice
// versa, tolerates additive minor changes); a differing major version is a
// fatal state-unmarshal failure.
func CheckCompatible(want, got uint32) error {
	wantVer, err := hashiver.NewVersion(versionString(want))
	if err != nil {
		return fmt.Errorf("state: invalid version tag %#x: %w", want, err)
	}
	gotVer, err := hashiver.NewVersion(versionString(got))
	if err != nil {
		return fmt.Errorf("state: invalid version tag %#x: %w", got, err)
	}
	if wantVer.Segments()[0] != gotVer.Segments()[0] {
		return fmt.Errorf("state: incompatible envelope version: have %s, want major %d", gotVer, wantVer.Segments()[0])
	}
	return nil
}
