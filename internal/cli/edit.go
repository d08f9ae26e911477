package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fieldlog/internal/models"
)

var (
	editSummary   string
	editSentiment string
	editTopics    string
	editOutcome   string
	editDatetime  string
	editHCPID     string
)

var editCmd = &cobra.Command{
	Use:   "edit <interaction-id> [request]",
	Short: "Edit a logged interaction",
	Long: `Edit the scalar fields of a logged interaction.

Either set fields directly with flags, or describe the change in plain
language and let the AI assistant work out the update.

Examples:
  fieldlog edit 6f1c... --sentiment negative --outcome "Declined trial"
  fieldlog edit 6f1c... "she actually agreed to a two-week trial"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVarP(&editSummary, "summary", "s", "", "new summary")
	editCmd.Flags().StringVar(&editSentiment, "sentiment", "", "positive, neutral or negative")
	editCmd.Flags().StringVarP(&editTopics, "topics", "t", "", "comma-separated topics")
	editCmd.Flags().StringVar(&editOutcome, "outcome", "", "new outcome")
	editCmd.Flags().StringVar(&editDatetime, "datetime", "", "new visit time")
	editCmd.Flags().StringVar(&editHCPID, "hcp-id", "", "link to another HCP, empty to unlink")
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id := args[0]

	patch := models.InteractionPatch{}
	flags := cmd.Flags()
	if flags.Changed("summary") {
		patch.Summary = models.Some(editSummary)
	}
	if flags.Changed("sentiment") {
		s, ok := models.ParseSentiment(editSentiment)
		if !ok {
			return fmt.Errorf("invalid sentiment %q (use positive, neutral or negative)", editSentiment)
		}
		patch.Sentiment = models.Some(s)
	}
	if flags.Changed("topics") {
		patch.Topics = models.Some(models.SplitTopics(editTopics))
	}
	if flags.Changed("outcome") {
		patch.Outcome = models.Some(editOutcome)
	}
	if flags.Changed("datetime") {
		patch.Datetime = models.Some(editDatetime)
	}
	if flags.Changed("hcp-id") {
		patch.HCPID = models.Some(editHCPID)
	}

	var updated *models.Interaction
	switch {
	case !patch.IsEmpty():
		if len(args) > 1 {
			return errors.New("use either field flags or a request, not both")
		}
		var err error
		updated, err = apiClient.UpdateInteraction(ctx, id, patch)
		if err != nil {
			return fmt.Errorf("update interaction: %w", err)
		}
	case len(args) > 1 && strings.TrimSpace(args[1]) != "":
		res, err := apiClient.EditViaAgent(ctx, id, models.EditRequest{EditRequest: args[1]})
		if err != nil {
			return fmt.Errorf("edit interaction: %w", err)
		}
		updated = res.Interaction
	default:
		return errors.New("nothing to edit: pass field flags or a request")
	}

	fmt.Println("Interaction updated.")
	printInteraction(updated)
	return nil
}
