package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/raphaelgruber/fieldlog/internal/models"
)

type detailError struct {
	status int
	detail string
}

func (e *detailError) Error() string       { return fmt.Sprintf("server error: %d", e.status) }
func (e *detailError) ErrorDetail() string { return e.detail }

type fakeDirectory struct {
	mu        sync.Mutex
	hcps      []models.HCP
	searchErr error
	createErr error
	searches  []string
	created   []models.HCPInput
}

func (f *fakeDirectory) SearchHCPs(_ context.Context, query string) ([]models.HCP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hcps, nil
}

func (f *fakeDirectory) CreateHCP(_ context.Context, input models.HCPInput) (*models.HCP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, input)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.HCP{ID: fmt.Sprintf("hcp-%d", len(f.created)), Name: input.Name}, nil
}

type fakeSink struct {
	mu        sync.Mutex
	err       error
	submitted []models.Interaction
}

func (f *fakeSink) CreateInteraction(_ context.Context, i models.Interaction) (*models.Interaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, i)
	if f.err != nil {
		return nil, f.err
	}
	i.ID = fmt.Sprintf("int-%d", len(f.submitted))
	return &i, nil
}

type fakeExtractor struct {
	result *models.ConversationResult
	err    error
	// block, when set, holds Converse until closed.
	block    chan struct{}
	started  chan struct{}
	requests []models.ConversationRequest
}

func (f *fakeExtractor) Converse(_ context.Context, req models.ConversationRequest) (*models.ConversationResult, error) {
	f.requests = append(f.requests, req)
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

type fakeRecognizer struct {
	texts []string
	errs  []error
	calls int
}

func (f *fakeRecognizer) Recognize(context.Context) (string, error) {
	i := f.calls
	f.calls++
	var text string
	var err error
	if i < len(f.texts) {
		text = f.texts[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return text, err
}
