package format

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/slack-go/slack"

	"github.com/thelabelsunday/invoice-checker/constants"
	"github.com/thelabelsunday/invoice-checker/internal/verdict"
)

// Slack caps section text at 3000 chars; stay under it with room for the
// ellipsis marker.
const maxSectionText = 2900

var statusEmoji = map[constants.OverallStatus]string{
	constants.StatusApproved:           ":white_check_mark:",
	constants.StatusMissingInformation: ":warning:",
	constants.StatusInvalid:            ":x:",
}

var statusTextDA = map[constants.OverallStatus]string{
	constants.StatusApproved:           "Godkendt",
	constants.StatusMissingInformation: "Mangler information",
	constants.StatusInvalid:            "Ugyldig",
}

// FormatBlocks renders a Verdict as Slack Block Kit blocks. sourceLabel is
// the header line, e.g. "PayPal faktura".
func FormatBlocks(v verdict.Verdict, sourceLabel string) []slack.Block {
	var present, missing, unclear []verdict.CheckItem
	for _, c := range v.Checks {
		switch c.Status {
		case constants.CheckPresent:
			present = append(present, c)
		case constants.CheckMissing:
			missing = append(missing, c)
		case constants.CheckUnclear:
			unclear = append(unclear, c)
		}
	}
	total := len(present) + len(missing) + len(unclear)

	emoji, ok := statusEmoji[v.OverallStatus]
	if !ok {
		emoji = ":question:"
	}
	statusDA, ok := statusTextDA[v.OverallStatus]
	if !ok {
		statusDA = string(v.OverallStatus)
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, sourceLabel, true, false)),
		markdownSection(fmt.Sprintf("%s *Status: %s*\n:clipboard: %d/%d tjek bestået", emoji, statusDA, len(present), total)),
		slack.NewDividerBlock(),
	}

	if len(present) > 0 {
		lines := make([]string, 0, len(present))
		for _, c := range present {
			line := ":white_check_mark: " + c.Requirement
			if c.FoundValue != nil && *c.FoundValue != "" {
				line += " - _" + *c.FoundValue + "_"
			}
			lines = append(lines, line)
		}
		blocks = append(blocks, markdownSection(truncate("*Fundet og OK:*\n"+strings.Join(lines, "\n"))))
	}

	if len(missing) > 0 {
		lines := make([]string, 0, len(missing))
		for _, c := range missing {
			line := ":x: *" + c.Requirement + "*"
			if c.FixRecommendation != nil && *c.FixRecommendation != "" {
				line += "\n     _" + *c.FixRecommendation + "_"
			}
			lines = append(lines, line)
		}
		blocks = append(blocks,
			slack.NewDividerBlock(),
			markdownSection(truncate("*Mangler:*\n"+strings.Join(lines, "\n"))),
		)
	}

	if len(unclear) > 0 {
		lines := make([]string, 0, len(unclear))
		for _, c := range unclear {
			line := ":warning: *" + c.Requirement + "*"
			if c.FoundValue != nil && *c.FoundValue != "" {
				line += " (fundet: _" + *c.FoundValue + "_)"
			}
			if c.FixRecommendation != nil && *c.FixRecommendation != "" {
				line += "\n     _" + *c.FixRecommendation + "_"
			}
			lines = append(lines, line)
		}
		blocks = append(blocks,
			slack.NewDividerBlock(),
			markdownSection(truncate("*Uklart:*\n"+strings.Join(lines, "\n"))),
		)
	}

	blocks = append(blocks,
		slack.NewDividerBlock(),
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, ":memo: "+v.Summary, false, false)),
	)
	return blocks
}

func markdownSection(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}

func truncate(text string) string {
	if len(text) <= maxSectionText {
		return text
	}
	// Back up to a rune boundary; a byte cut mid-rune yields invalid UTF-8
	// and Slack rejects the payload.
	cut := maxSectionText
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n..."
}
