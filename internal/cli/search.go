package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Search HCPs by name",
	Long: `Search HCPs by case-insensitive name substring.

Returns at most 10 matches, oldest first.

Examples:
  fieldlog search patel
  fieldlog search "dr. a" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	results, err := apiClient.SearchHCPs(ctx, args[0])
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if searchJSON {
		return printJSON(results)
	}

	if len(results) == 0 {
		fmt.Println("No HCPs found.")
		return nil
	}

	fmt.Printf("Found %d HCPs:\n\n", len(results))
	for i := range results {
		fmt.Printf("%d. ", i+1)
		printHCP(&results[i])
	}
	return nil
}
