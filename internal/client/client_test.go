package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/notify"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/api")
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("FIELDLOG_SERVER_URL", "")
	t.Setenv("FIELDLOG_CLIENT_TIMEOUT", "")
	c := New("")
	assert.Equal(t, "http://localhost:8000/api", c.BaseURL())

	t.Setenv("FIELDLOG_SERVER_URL", "http://crm.internal:9000/api/")
	t.Setenv("FIELDLOG_CLIENT_TIMEOUT", "5s")
	c = New("")
	assert.Equal(t, "http://crm.internal:9000/api", c.BaseURL())
	assert.Equal(t, "5s", c.httpClient.Timeout.String())
}

func TestSearchHCPs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/hcps/search", r.URL.Path)
		assert.Equal(t, "dr rao", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		_, _ = io.WriteString(w, `[{"id":"h1","name":"Dr. Anita Rao","title":"Dr."}]`)
	})

	hcps, err := c.SearchHCPs(context.Background(), "dr rao")
	require.NoError(t, err)
	require.Len(t, hcps, 1)
	assert.Equal(t, "Dr. Anita Rao", hcps[0].Name)
}

func TestCreateInteraction_SendsNormalizedBody(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"int-9","hcp_id":null,"mode":"structured","topics":[],"materials":[],"samples":[],"follow_ups":[]}`)
	})

	in := models.Interaction{Mode: models.ModeStructured, Topics: []string{}, Materials: []models.Material{}, Samples: []models.Sample{}, FollowUps: []models.FollowUp{}}
	out, err := c.CreateInteraction(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "int-9", out.ID)
	assert.Nil(t, out.HCPID)
	assert.Contains(t, got, "hcp_id")
	assert.Nil(t, got["hcp_id"])
	assert.Equal(t, []any{}, got["materials"])
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"string detail", http.StatusNotFound, `{"detail":"Interaction not found"}`, "Interaction not found"},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, `[{"msg":"field required"}]`},
		{"plain body", http.StatusBadGateway, "upstream down\n", "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.GetInteraction(context.Background(), "missing")
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantDetail, apiErr.ErrorDetail())
			assert.Equal(t, tt.status == http.StatusNotFound, IsNotFound(err))
		})
	}
}

func TestUpdateInteraction_SendsOnlyPresentFields(t *testing.T) {
	var raw map[string]json.RawMessage
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/interactions/int-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = io.WriteString(w, `{"id":"int-1","hcp_id":"h1","sentiment":"positive","topics":[],"materials":[],"samples":[],"follow_ups":[]}`)
	})

	patch := models.InteractionPatch{Sentiment: models.Some(models.SentimentPositive), Outcome: models.Some("")}
	out, err := c.UpdateInteraction(context.Background(), "int-1", patch)
	require.NoError(t, err)

	assert.Equal(t, models.SentimentPositive, out.Sentiment)
	assert.Len(t, raw, 2)
	assert.JSONEq(t, `"positive"`, string(raw["sentiment"]))
	assert.JSONEq(t, `""`, string(raw["outcome"]))
}

func TestConverse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.ConversationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "rep_001", req.RepID)
		_, _ = io.WriteString(w, `{"success":true,"ai_response":"done","extracted_data":{"hcp_name":"Dr. Rohan","outcome":null}}`)
	})

	res, err := c.Converse(context.Background(), models.ConversationRequest{Text: "hi", RepID: "rep_001"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotNil(t, res.ExtractedData)
	assert.Equal(t, "Dr. Rohan", res.ExtractedData.HCPName.OrElse(""))
	assert.False(t, res.ExtractedData.Outcome.IsSet())
}

func TestSubscribeEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_ = conn.WriteJSON(notify.Event{ExtractedData: models.Extraction{Summary: models.Some("first")}})
		_ = conn.WriteJSON(notify.Event{ExtractedData: models.Extraction{Summary: models.Some("second")}})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})

	var got []string
	err := c.SubscribeEvents(context.Background(), func(ev notify.Event) error {
		got = append(got, ev.ExtractedData.Summary.OrElse(""))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, got)
}
