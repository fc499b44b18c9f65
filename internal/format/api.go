// Package format renders a canonical Verdict into channel payloads. Every
// function here is pure: same Verdict in, byte-identical payload out.
package format

import (
	"fmt"
	"strings"

	"github.com/thelabelsunday/invoice-checker/constants"
	"github.com/thelabelsunday/invoice-checker/internal/verdict"
)

// APIPayload is the synchronous channel's reshaped verdict.
type APIPayload struct {
	Passed  bool                    `json:"passed"`
	Status  constants.OverallStatus `json:"status"`
	Logs    string                  `json:"logs"`
	Summary string                  `json:"summary"`
}

// FormatAPI reshapes a Verdict for the synchronous channel. Failing checks
// come first in the log so the caller sees what to fix before what is fine.
func FormatAPI(v verdict.Verdict) APIPayload {
	var lines []string
	for _, c := range v.Checks {
		switch c.Status {
		case constants.CheckMissing:
			lines = append(lines, logLine("❌", c))
		case constants.CheckUnclear:
			lines = append(lines, logLine("⚠️", c))
		}
	}
	for _, c := range v.Checks {
		if c.Status == constants.CheckPresent {
			lines = append(lines, logLine("✅", c))
		}
	}

	passed := v.CountByStatus(constants.CheckPresent)
	return APIPayload{
		Passed:  v.OverallStatus == constants.StatusApproved,
		Status:  v.OverallStatus,
		Logs:    strings.Join(lines, "\n"),
		Summary: fmt.Sprintf("%d/%d checks passed", passed, len(v.Checks)),
	}
}

func logLine(icon string, c verdict.CheckItem) string {
	line := icon + " " + c.Requirement
	if c.Status == constants.CheckPresent {
		if c.FoundValue != nil && *c.FoundValue != "" {
			line += ": " + *c.FoundValue
		}
		return line
	}
	if c.FixRecommendation != nil && *c.FixRecommendation != "" {
		line += " (fix: " + *c.FixRecommendation + ")"
	}
	return line
}
