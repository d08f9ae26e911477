package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/store"
)

// FindOrCreateHCP returns the oldest HCP whose name contains in.Name,
// creating one from in when none matches. A blank name returns nil.
func FindOrCreateHCP(ctx context.Context, st store.Store, in models.HCPInput) (h *models.HCP, created bool, err error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, false, nil
	}

	found, err := st.SearchHCPs(ctx, name, 1)
	if err != nil {
		return nil, false, fmt.Errorf("search hcp: %w", err)
	}
	if len(found) > 0 {
		return &found[0], false, nil
	}

	in.Name = name
	h, err = st.CreateHCP(ctx, in)
	if err != nil {
		return nil, false, fmt.Errorf("create hcp: %w", err)
	}
	return h, true, nil
}
