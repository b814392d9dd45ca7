package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arogya-swarm/backend/internal/state"
	"arogya-swarm/backend/internal/workflow"
	"arogya-swarm/backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func sampleRun() *workflow.RunResult {
	st := state.New(models.ExternalSignals{AQI: 350})
	st.SurgePrediction = &models.SurgePrediction{Likelihood: models.LikelihoodHigh, ConfidenceScore: 85}
	st.Recommendations = []models.Recommendation{{Type: "staff_reallocation", Title: "Move nurses"}}
	st.Messages = []string{"[Sentinel] Surge prediction: high"}
	return &workflow.RunResult{
		RunID:      "run-1",
		State:      st,
		Path:       []string{"sentinel", "orchestrator", "action_agents"},
		FinishedAt: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestFromRun(t *testing.T) {
	u := FromRun(sampleRun())
	assert.Equal(t, TypeAgentUpdate, u.Type)
	assert.Equal(t, "run-1", u.RunID)
	require.NotNil(t, u.SurgePrediction)
	assert.Equal(t, models.LikelihoodHigh, u.SurgePrediction.Likelihood)
	assert.Len(t, u.Recommendations, 1)
	assert.Equal(t, time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC), u.Timestamp)
}

func TestBroker_PublishAndUnsubscribe(t *testing.T) {
	b := NewBroker()
	a, cancelA := b.Subscribe()
	c, cancelC := b.Subscribe()
	assert.Equal(t, 2, b.Subscribers())

	b.PublishRun(context.Background(), sampleRun())
	assert.Equal(t, "run-1", (<-a).RunID)
	assert.Equal(t, "run-1", (<-c).RunID)

	cancelA()
	cancelA()
	assert.Equal(t, 1, b.Subscribers())
	_, open := <-a
	assert.False(t, open)

	b.PublishRun(context.Background(), nil)
	cancelC()
	assert.Zero(t, b.Subscribers())
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker()
	_, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < bufferSize*3; i++ {
			b.Publish(Update{RunID: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestServeWS(t *testing.T) {
	b := NewBroker()
	srv := httptest.NewServer(http.HandlerFunc(b.ServeWS))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	b.PublishRun(ctx, sampleRun())

	var got Update
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, TypeAgentUpdate, got.Type)
	assert.Equal(t, "run-1", got.RunID)
	require.NotNil(t, got.SurgePrediction)
	assert.Equal(t, 85, got.SurgePrediction.ConfidenceScore)
}
