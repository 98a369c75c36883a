package util

import (
	"fmt"
	"regexp"
	"strconv"
)

// Version is a semantic version of the tool or of the format a description requires.
type Version struct {
	Major uint
	Minor uint
	Patch uint
}

// TbgenVersion is the version of this tool.
var TbgenVersion = Version{1, 3, 0}

var versionRe = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)$`)

// ParseVersion parses strings such as "v1.2.3" or "1.2.3".
func ParseVersion(s string) (Version, error) {
	match := versionRe.FindStringSubmatch(s)
	if match == nil {
		return Version{}, fmt.Errorf("invalid version string %q", s)
	}

	parts := []uint{}
	for _, m := range match[1:] {
		part, err := strconv.ParseUint(m, 10, 32)
		if err != nil {
			return Version{}, err
		}
		parts = append(parts, uint(part))
	}
	return Version{parts[0], parts[1], parts[2]}, nil
}

// AtLeast reports whether v is equal to or newer than min.
func (v Version) AtLeast(min Version) bool {
	if v.Major != min.Major {
		return v.Major > min.Major
	}
	if v.Minor != min.Minor {
		return v.Minor > min.Minor
	}
	return v.Patch >= min.Patch
}

func (v Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}
