package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fieldlog/internal/models"
)

var (
	hcpTitle        string
	hcpSpeciality   string
	hcpOrganisation string
)

var hcpCmd = &cobra.Command{
	Use:   "hcp",
	Short: "Manage HCP records",
}

var hcpCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an HCP",
	Long: `Create an HCP record.

Examples:
  fieldlog hcp create "Dr. Omar Haddad" --speciality Neurology --organisation "St. Mary's"`,
	Args: cobra.ExactArgs(1),
	RunE: runHCPCreate,
}

var hcpShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an HCP",
	Args:  cobra.ExactArgs(1),
	RunE:  runHCPShow,
}

func init() {
	hcpCreateCmd.Flags().StringVar(&hcpTitle, "title", "", "title, e.g. Dr.")
	hcpCreateCmd.Flags().StringVar(&hcpSpeciality, "speciality", "", "speciality")
	hcpCreateCmd.Flags().StringVar(&hcpOrganisation, "organisation", "", "hospital or practice")

	hcpCmd.AddCommand(hcpCreateCmd)
	hcpCmd.AddCommand(hcpShowCmd)
}

func runHCPCreate(cmd *cobra.Command, args []string) error {
	created, err := apiClient.CreateHCP(context.Background(), models.HCPInput{
		Name:         args[0],
		Title:        hcpTitle,
		Speciality:   hcpSpeciality,
		Organisation: hcpOrganisation,
	})
	if err != nil {
		return fmt.Errorf("create hcp: %w", err)
	}
	fmt.Print("Created ")
	printHCP(created)
	return nil
}

func runHCPShow(cmd *cobra.Command, args []string) error {
	h, err := apiClient.GetHCP(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("get hcp: %w", err)
	}
	printHCP(h)
	return nil
}
