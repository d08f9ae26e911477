package store

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/fieldlog/internal/models"
)

// SeedHCPs is the starter directory for demos and local development.
var SeedHCPs = []models.HCPInput{
	{Name: "Dr. Meera Patel", Title: "Dr.", Speciality: "Cardiology", Organisation: "City Hospital"},
	{Name: "Dr. Rohan Sharma", Title: "Dr.", Speciality: "Cardiology", Organisation: "City Hospital"},
	{Name: "Dr. Anita Rao", Title: "Dr.", Speciality: "Cardiology", Organisation: "City Hospital"},
}

// Seed creates each SeedHCPs entry whose exact name is not yet present.
// It returns the number of HCPs created.
func Seed(ctx context.Context, s Store) (int, error) {
	created := 0
	for _, in := range SeedHCPs {
		existing, err := s.SearchHCPs(ctx, in.Name, SearchLimit)
		if err != nil {
			return created, fmt.Errorf("search %s: %w", in.Name, err)
		}
		if containsName(existing, in.Name) {
			continue
		}
		if _, err := s.CreateHCP(ctx, in); err != nil {
			return created, fmt.Errorf("create %s: %w", in.Name, err)
		}
		created++
	}
	return created, nil
}

func containsName(hcps []models.HCP, name string) bool {
	for _, h := range hcps {
		if h.Name == name {
			return true
		}
	}
	return false
}
