package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 2, 16, 5, 0, 0, time.UTC)

func newStructured(dir *fakeDirectory, sink *fakeSink) *StructuredCapture {
	return NewStructuredCapture(dir, sink, "rep_001", WithClock(func() time.Time { return fixedNow }))
}

func TestSearch_LengthGate(t *testing.T) {
	dir := &fakeDirectory{hcps: []models.HCP{{ID: "1", Name: "Dr. Meera Patel"}}}
	c := newStructured(dir, &fakeSink{})
	ctx := context.Background()

	require.NoError(t, c.Search(ctx, "Mee"))
	assert.Len(t, c.Candidates(), 1)

	require.NoError(t, c.Search(ctx, "Me"))
	assert.Empty(t, c.Candidates(), "short query clears candidates")

	require.NoError(t, c.Search(ctx, "éé"))
	assert.Equal(t, []string{"Mee"}, dir.searches, "queries of two runes or fewer never reach the directory")
}

func TestSearch_FailureKeepsCandidates(t *testing.T) {
	dir := &fakeDirectory{hcps: []models.HCP{{ID: "1", Name: "Dr. Anita Rao"}}}
	c := newStructured(dir, &fakeSink{})
	ctx := context.Background()
	require.NoError(t, c.Search(ctx, "Anita"))

	dir.searchErr = errors.New("connection refused")
	err := c.Search(ctx, "Anit")

	require.Error(t, err)
	assert.Len(t, c.Candidates(), 1)
	require.NotNil(t, c.Status())
	assert.Equal(t, StatusError, c.Status().Level)
	assert.Contains(t, c.Status().Message, "connection refused")
}

func TestSelectCandidate(t *testing.T) {
	dir := &fakeDirectory{hcps: []models.HCP{{ID: "hcp-7", Name: "Dr. Rohan Sharma"}}}
	c := newStructured(dir, &fakeSink{})
	require.NoError(t, c.SetField("hcp_name", "Roh"))
	require.NoError(t, c.Search(context.Background(), c.Query()))

	c.SelectCandidate(c.Candidates()[0])

	d := c.Draft()
	assert.Equal(t, "hcp-7", d.HCPID)
	assert.Equal(t, "Dr. Rohan Sharma", d.HCPName)
	assert.Empty(t, c.Candidates())
	assert.Empty(t, c.Query())
}

func TestRowEditing(t *testing.T) {
	c := newStructured(&fakeDirectory{}, &fakeSink{})
	first := c.Draft().Materials[0].ID

	second, err := c.AddRow(ListMaterials)
	require.NoError(t, err)
	require.NoError(t, c.UpdateRow(ListMaterials, second, "material_type", "Brochure"))
	require.NoError(t, c.UpdateRow(ListMaterials, second, "quantity", "3"))

	d := c.Draft()
	require.Len(t, d.Materials, 2)
	assert.Equal(t, models.Material{}, d.Materials[0].Value)
	assert.Equal(t, models.Material{MaterialType: "Brochure", Quantity: 3}, d.Materials[1].Value)

	require.NoError(t, c.RemoveRow(ListMaterials, first))
	require.NoError(t, c.RemoveRow(ListMaterials, second))
	d = c.Draft()
	require.Len(t, d.Materials, 1, "last row cannot be removed")
	assert.Equal(t, second, d.Materials[0].ID)

	assert.ErrorIs(t, c.UpdateRow(ListMaterials, first, "notes", "gone"), models.ErrRowNotFound)
	assert.Error(t, c.UpdateRow(ListSamples, c.Draft().Samples[0].ID, "bogus", "x"))
	_, err = c.AddRow("widgets")
	assert.Error(t, err)
}

func TestFollowUpRowDefaultsToOpen(t *testing.T) {
	c := newStructured(&fakeDirectory{}, &fakeSink{})
	id, err := c.AddRow(ListFollowUps)
	require.NoError(t, err)

	v, ok := c.Draft().FollowUps.Get(id)
	require.True(t, ok)
	assert.Equal(t, "open", v.Status)
}

func TestSetField(t *testing.T) {
	c := newStructured(&fakeDirectory{}, &fakeSink{})

	require.NoError(t, c.SetField("sentiment", "Positive"))
	require.NoError(t, c.SetField("topics", "a, b"))
	assert.Error(t, c.SetField("sentiment", "furious"))
	assert.Error(t, c.SetField("interaction_type", "meeting"))

	d := c.Draft()
	assert.Equal(t, models.SentimentPositive, d.Sentiment)
	assert.Equal(t, "a, b", d.Topics)
}

func TestSetTopics(t *testing.T) {
	sink := &fakeSink{}
	c := newStructured(&fakeDirectory{}, sink)

	c.SetTopics([]string{"Efficacy, safety", "Dosing"})
	assert.Equal(t, "Efficacy, safety, Dosing", c.Draft().Topics)

	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.submitted, 1)
	assert.Equal(t, []string{"Efficacy, safety", "Dosing"}, sink.submitted[0].Topics)

	t.Run("typing switches back to text", func(t *testing.T) {
		c.SetTopics([]string{"Efficacy, safety"})
		require.NoError(t, c.SetField("topics", "pricing, supply"))
		assert.Nil(t, c.Draft().TopicList)
		assert.Equal(t, []string{"pricing", "supply"}, models.Normalize(c.Draft()).Topics)
	})
}

func TestSubmit_NameWithoutIDCreatesHCPFirst(t *testing.T) {
	dir := &fakeDirectory{}
	sink := &fakeSink{}
	c := newStructured(dir, sink)
	require.NoError(t, c.SetField("hcp_name", "Dr. New Person"))

	created, err := c.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, dir.created, 1)
	assert.Equal(t, models.HCPInput{Name: "Dr. New Person"}, dir.created[0])
	require.Len(t, sink.submitted, 1)
	assert.Equal(t, "hcp-1", sink.submitted[0].HCPRef())
	assert.Equal(t, models.ModeStructured, sink.submitted[0].Mode)
	assert.Equal(t, "rep_001", sink.submitted[0].RepID)
	assert.Equal(t, "int-1", created.ID)
}

func TestSubmit_ResolvedIDSkipsCreation(t *testing.T) {
	dir := &fakeDirectory{}
	sink := &fakeSink{}
	c := newStructured(dir, sink)
	c.SelectCandidate(models.HCP{ID: "hcp-42", Name: "Dr. Anita Rao"})
	require.NoError(t, c.SetField("hcp_name", "Dr. Anita R."))

	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	assert.Empty(t, dir.created)
	require.Len(t, sink.submitted, 1)
	assert.Equal(t, "hcp-42", sink.submitted[0].HCPRef())
}

func TestSubmit_NoNameNoID(t *testing.T) {
	dir := &fakeDirectory{}
	sink := &fakeSink{}
	c := newStructured(dir, sink)

	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	assert.Empty(t, dir.created)
	assert.Nil(t, sink.submitted[0].HCPID)
}

func TestSubmit_SuccessResetsDraft(t *testing.T) {
	c := newStructured(&fakeDirectory{}, &fakeSink{})
	id, _ := c.AddRow(ListSamples)
	require.NoError(t, c.UpdateRow(ListSamples, id, "product_code", "PX"))
	_, _ = c.AddRow(ListMaterials)
	_, _ = c.AddRow(ListFollowUps)
	require.NoError(t, c.SetField("summary", "Discussed dosing"))

	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	d := c.Draft()
	assert.Len(t, d.Materials, 1)
	assert.Len(t, d.Samples, 1)
	assert.Len(t, d.FollowUps, 1)
	assert.Empty(t, d.Summary)
	assert.Equal(t, "2025-06-02T16:05", d.Datetime)
	require.NotNil(t, c.Status())
	assert.Equal(t, StatusSuccess, c.Status().Level)
	assert.False(t, c.Submitting())
}

func TestSubmit_FailureKeepsDraft(t *testing.T) {
	tests := []struct {
		name      string
		dir       *fakeDirectory
		sink      *fakeSink
		wantMsg   string
		wantCalls int
	}{
		{
			name:      "hcp creation fails",
			dir:       &fakeDirectory{createErr: &detailError{status: 422, detail: "name must not be empty"}},
			sink:      &fakeSink{},
			wantMsg:   "Error: name must not be empty",
			wantCalls: 0,
		},
		{
			name:      "interaction submission fails",
			dir:       &fakeDirectory{},
			sink:      &fakeSink{err: errors.New("dial tcp: connection refused")},
			wantMsg:   "connection refused",
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newStructured(tt.dir, tt.sink)
			require.NoError(t, c.SetField("hcp_name", "Dr. Typo"))
			require.NoError(t, c.SetField("summary", "keep me"))
			id, _ := c.AddRow(ListMaterials)
			require.NoError(t, c.UpdateRow(ListMaterials, id, "material_type", "Leaflet"))
			before := c.Draft()

			_, err := c.Submit(context.Background())
			require.Error(t, err)

			assert.Equal(t, before, c.Draft())
			assert.Len(t, tt.sink.submitted, tt.wantCalls)
			require.NotNil(t, c.Status())
			assert.Equal(t, StatusError, c.Status().Level)
			assert.Contains(t, c.Status().Message, tt.wantMsg)

			c.DismissStatus()
			assert.Nil(t, c.Status())
		})
	}
}

func TestSubmit_RetryAfterInteractionFailureCreatesHCPAgain(t *testing.T) {
	dir := &fakeDirectory{}
	sink := &fakeSink{err: errors.New("boom")}
	c := newStructured(dir, sink)
	require.NoError(t, c.SetField("hcp_name", "Dr. Retry"))

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.Empty(t, c.Draft().HCPID)

	sink.err = nil
	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, dir.created, 2)
}
