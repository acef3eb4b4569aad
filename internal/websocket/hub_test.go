package websocket

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/paperboy/internal/logger"
	"github.com/welldanyogia/paperboy/internal/models"
)

func TestNewSecureUpgrader_CheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed string
		origin  string
		want    bool
	}{
		{"listed", "http://localhost:3000, http://reader.test", "http://reader.test", true},
		{"unlisted", "http://reader.test", "http://evil.test", false},
		{"same origin has no header", "http://reader.test", "", true},
		{"empty list defaults to localhost", ",,", "http://localhost:3000", true},
		{"wildcard", "*", "http://anything.test", true},
		{"exact match only", "http://reader.test", "HTTP://READER.TEST", false},
		{"path is not an origin", "http://reader.test", "http://reader.test/dash", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upgrader := NewSecureUpgrader(tt.allowed, nil)
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			assert.Equal(t, tt.want, upgrader.CheckOrigin(req))
		})
	}
}

func TestNewSecureUpgrader_LogsRejectedOrigin(t *testing.T) {
	var buf bytes.Buffer
	upgrader := NewSecureUpgrader("http://reader.test", logger.NewSecurityLoggerWithHandler(slog.NewJSONHandler(&buf, nil)))
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://evil.test")

	assert.False(t, upgrader.CheckOrigin(req))
	assert.Contains(t, buf.String(), `"origin":"http://evil.test"`)
}

func TestHub_NewHub(t *testing.T) {
	hub := NewHub(nil)

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.subscriptions)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	// This should not panic or block with no subscribers
	hub.Publish("article_created", map[string]int{"id": 1})
	hub.EmailArchived(1, models.EmailTypeNewsletter)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub(nil)

	// hub not running: the queue fills and further events are dropped
	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.Publish("article_created", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
}

func TestHub_RoutesEventsByTopic(t *testing.T) {
	// Arrange
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	articles := NewClient(hub, nil, nil)
	emails := NewClient(hub, nil, nil)
	everything := NewClient(hub, nil, nil)
	for _, c := range []*Client{articles, emails, everything} {
		hub.Register(c)
	}
	hub.Subscribe(articles, TopicArticles)
	hub.Subscribe(emails, TopicEmails)
	hub.Subscribe(everything, TopicAll)
	hub.Subscribe(everything, TopicArticles)

	// Act
	hub.Publish("article_processed", map[string]int{"id": 7})
	hub.EmailReplayed(3, models.ProcessingOutcome{Type: models.EmailTypeGeneric, Processed: true})

	// Assert
	got := readMessage(t, articles)
	assert.Equal(t, MessageTypeEvent, got.Type)
	assert.Equal(t, TopicArticles, got.Topic)
	assert.Equal(t, "article_processed", got.Event)

	got = readMessage(t, emails)
	assert.Equal(t, EventEmailReplayed, got.Event)

	assert.Equal(t, "article_processed", readMessage(t, everything).Event)
	assert.Equal(t, EventEmailReplayed, readMessage(t, everything).Event)
	assert.Empty(t, everything.send, "subscriber of two matching topics receives one copy")
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()
	client := NewClient(hub, nil, nil)
	hub.Register(client)

	hub.Stop()

	<-done
	_, open := <-client.send
	assert.False(t, open)
	assert.Zero(t, hub.ClientCount())
}

func TestServe_DeliversSubscribedEvents(t *testing.T) {
	// Arrange
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, Serve(hub, NewSecureUpgrader("*", nil), w, r, nil))
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageTypeSubscribe, Topic: TopicEmails}))
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.subscriptions[TopicEmails]) == 1
	}, time.Second, 10*time.Millisecond)

	// Act
	hub.EmailArchived(42, models.EmailTypeFiveFilters)

	// Assert
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventEmailArchived, msg.Event)
	payload, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(42), payload["id"])
	assert.Equal(t, "fivefilters", payload["type"])
}

func readMessage(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return WSMessage{}
	}
}
