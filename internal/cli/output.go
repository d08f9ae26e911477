package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/fieldlog/internal/models"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHCP(h *models.HCP) {
	fmt.Printf("%s [%s]\n", h.Name, h.ID)
	var parts []string
	for _, p := range []string{h.Title, h.Speciality, h.Organisation} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		fmt.Printf("   %s\n", strings.Join(parts, " · "))
	}
}

// printInteraction renders a stored interaction for the terminal.
func printInteraction(i *models.Interaction) {
	fmt.Printf("Interaction %s (%s)\n", i.ID, i.Mode)
	fmt.Printf("  HCP:        %s\n", orNone(i.HCPRef()))
	fmt.Printf("  Rep:        %s\n", i.RepID)
	if i.Datetime != "" {
		fmt.Printf("  Date/Time:  %s\n", i.Datetime)
	}
	if i.Sentiment != "" {
		fmt.Printf("  Sentiment:  %s\n", i.Sentiment.Title())
	}
	if len(i.Topics) > 0 {
		fmt.Printf("  Topics:     %s\n", strings.Join(i.Topics, ", "))
	}
	if i.Summary != "" {
		fmt.Printf("  Summary:    %s\n", i.Summary)
	}
	if i.Outcome != "" {
		fmt.Printf("  Outcome:    %s\n", i.Outcome)
	}

	if len(i.Materials) > 0 {
		fmt.Printf("\n  Materials:\n")
		for _, m := range i.Materials {
			fmt.Printf("    • %s (x%d)%s\n", m.MaterialType, m.Quantity, suffix(m.Notes))
		}
	}
	if len(i.Samples) > 0 {
		fmt.Printf("\n  Samples:\n")
		for _, s := range i.Samples {
			fmt.Printf("    • %s (x%d)%s\n", s.ProductCode, s.Quantity, suffix(s.Lot))
		}
	}
	if len(i.FollowUps) > 0 {
		fmt.Printf("\n  Follow-ups:\n")
		for _, f := range i.FollowUps {
			line := f.ActionItem
			if f.DueDate != "" {
				line += ", due " + f.DueDate
			}
			if f.Owner != "" {
				line += ", " + f.Owner
			}
			fmt.Printf("    • [%s] %s\n", f.Status, line)
		}
	}
	if verbose && i.SourceRaw != "" {
		fmt.Printf("\n  Source: %q\n", i.SourceRaw)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func suffix(s string) string {
	if s == "" {
		return ""
	}
	return " - " + s
}
