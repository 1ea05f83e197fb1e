package codec

import (
	"regexp"
	"strings"
)

var markerRe = regexp.MustCompile(`<!--\s*DES-([A-Z-]+):\s*(.*?)\s*-->`)

// Markers are the DES annotations embedded in a governed tool's prompt.
type Markers struct {
	ProjectID  string
	StepID     string
	Validation string
}

// ParseMarkers extracts DES markers from text. Later duplicates win.
func ParseMarkers(text string) Markers {
	var m Markers

	for _, match := range markerRe.FindAllStringSubmatch(text, -1) {
		switch match[1] {
		case "PROJECT-ID":
			m.ProjectID = match[2]
		case "STEP-ID":
			m.StepID = match[2]
		case "VALIDATION":
			m.Validation = match[2]
		}
	}

	return m
}

// StepKey returns "<project>/<step>", or "" when no step marker is present.
func (m Markers) StepKey() string {
	if m.StepID == "" {
		return ""
	}

	if m.ProjectID == "" {
		return m.StepID
	}

	return m.ProjectID + "/" + m.StepID
}

// IsRequired reports whether the prompt asked for DES validation.
func (m Markers) IsRequired() bool {
	return strings.EqualFold(m.Validation, "required")
}
