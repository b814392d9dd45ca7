// Package notify streams workflow results to dashboard clients.
package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"arogya-swarm/backend/internal/workflow"
	"arogya-swarm/backend/pkg/models"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// TypeAgentUpdate tags run summaries pushed to clients.
const TypeAgentUpdate = "agent_update"

const bufferSize = 16

// Update is the payload pushed after each run.
type Update struct {
	Type            string                  `json:"type"`
	RunID           string                  `json:"run_id"`
	SurgePrediction *models.SurgePrediction `json:"surge_prediction,omitempty"`
	Recommendations []models.Recommendation `json:"recommendations"`
	Messages        []string                `json:"messages"`
	ReasoningChain  []string                `json:"reasoning_chain"`
	Degraded        []string                `json:"degraded_stages,omitempty"`
	Timestamp       time.Time               `json:"timestamp"`
}

// FromRun builds the update for a completed run.
func FromRun(res *workflow.RunResult) Update {
	u := Update{
		Type:      TypeAgentUpdate,
		RunID:     res.RunID,
		Degraded:  res.Degraded,
		Timestamp: res.FinishedAt,
	}
	if st := res.State; st != nil {
		u.SurgePrediction = st.SurgePrediction
		u.Recommendations = st.Recommendations
		u.Messages = st.Messages
		u.ReasoningChain = st.ReasoningChain
	}
	return u
}

// Broker fans out updates to subscribers.
type Broker struct {
	mu   sync.Mutex
	subs map[chan Update]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Update]struct{})}
}

// Subscribe registers a new subscriber. Call the returned func to release it.
func (b *Broker) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, bufferSize)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish broadcasts u. Slow subscribers miss updates rather than block the run.
func (b *Broker) Publish(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// PublishRun broadcasts the summary of res.
func (b *Broker) PublishRun(_ context.Context, res *workflow.RunResult) {
	if res == nil {
		return
	}
	b.Publish(FromRun(res))
}

// ServeWS upgrades the connection and streams updates as JSON until the
// client goes away.
func (b *Broker) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "closing")

	updates, cancel := b.Subscribe()
	defer cancel()

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, u); err != nil {
				return
			}
		}
	}
}
