package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <interaction-id>",
	Short: "Show a logged interaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	i, err := apiClient.GetInteraction(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("get interaction: %w", err)
	}
	if showJSON {
		return printJSON(i)
	}
	printInteraction(i)
	return nil
}
