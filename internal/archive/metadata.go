package archive

import (
	"bufio"
	"fmt"
	"strings"
)

// OS identifies the client platform an entry was reported from.
type OS int

const (
	OSUnknown OS = iota
	OSiOS
	OSAndroid
	OSDesktop
)

func (o OS) String() string {
	switch o {
	case OSiOS:
		return "iOS"
	case OSAndroid:
		return "Android"
	case OSDesktop:
		return "Desktop"
	default:
		return "unknown"
	}
}

// ParseOS recognizes an OS name by substring, the same matching the
// detail file's Application line uses.
func ParseOS(input string) (OS, error) {
	lower := strings.ToLower(input)
	switch {
	case strings.Contains(lower, "android"):
		return OSAndroid, nil
	case strings.Contains(lower, "web"), strings.Contains(lower, "desktop"):
		return OSDesktop, nil
	case strings.Contains(lower, "ios"):
		return OSiOS, nil
	default:
		return OSUnknown, fmt.Errorf("OS %q must contain 'ios', 'android', 'web', or 'desktop'", input)
	}
}

// Metadata holds the descriptive attributes parsed from an entry's
// detail file. Fields the file did not provide stay zero.
type Metadata struct {
	Reason  string
	UserID  string
	Version string
	OS      OS
}

// parseDetails parses the line-oriented detail file. The first line is
// the free-text reason; a small fixed set of line prefixes fills the
// remaining fields. The first occurrence wins for each field, and
// parsing stops once all five recognized fields have been seen.
func parseDetails(text string) Metadata {
	var md Metadata
	var gotReason, gotOS, gotUser, gotVersion, gotBuild bool
	var build string

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	first := true
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case first:
			md.Reason = line
			gotReason = true
		case strings.HasPrefix(line, "Application"):
			if !gotOS {
				if os, err := ParseOS(line); err == nil {
					md.OS = os
				}
				gotOS = true
			}
		case strings.HasPrefix(line, "user_id"):
			if !gotUser {
				if fields := strings.Fields(line); len(fields) > 1 {
					md.UserID = fields[1]
				}
				gotUser = true
			}
		case strings.HasPrefix(line, "Version"), strings.HasPrefix(line, "app_hash"):
			if !gotVersion {
				if fields := strings.Fields(line); len(fields) > 1 {
					md.Version = fields[1]
				}
				gotVersion = true
			}
		case strings.HasPrefix(line, "build"):
			if !gotBuild {
				if fields := strings.Fields(line); len(fields) > 1 {
					build = strings.Join(fields[1:], " ")
				}
				gotBuild = true
			}
		}
		first = false

		if gotReason && gotOS && gotUser && gotVersion && gotBuild {
			break
		}
	}

	if build != "" {
		if md.Version != "" {
			md.Version = fmt.Sprintf("%s (%s)", md.Version, build)
		} else {
			md.Version = build
		}
	}

	return md
}
