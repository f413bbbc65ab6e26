package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSClientAccepts(t *testing.T) {
	admin := &WSClient{UserID: "a", Role: model.RoleAdmin}
	ana := &WSClient{UserID: "ana", Role: model.RoleClient}

	tests := []struct {
		name   string
		client *WSClient
		env    model.Envelope
		want   bool
	}{
		{"admin sees private", admin, model.Envelope{ClientID: "ana", Private: true}, true},
		{"admin sees others", admin, model.Envelope{ClientID: "bruno"}, true},
		{"client own public", ana, model.Envelope{ClientID: "ana"}, true},
		{"client own private", ana, model.Envelope{ClientID: "ana", Private: true}, false},
		{"client other tenant", ana, model.Envelope{ClientID: "bruno"}, false},
		{"client unowned", ana, model.Envelope{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := tt.env
			assert.Equal(t, tt.want, tt.client.accepts(&env))
		})
	}
}

func testClient(userID string, role model.Role, buffer int) *WSClient {
	return NewWSClient(nil, &model.Principal{UserID: userID, Role: role}, buffer)
}

func stopped(t *testing.T, c *WSClient) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client was not stopped")
	}
}

func receive(t *testing.T, c *WSClient) model.WSEvent {
	t.Helper()
	select {
	case data := <-c.Send:
		var ev model.WSEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return model.WSEvent{}
	}
}

func TestHubRoutesByTenant(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()
	defer hub.Shutdown()

	admin := testClient("a", model.RoleAdmin, 8)
	ana := testClient("ana", model.RoleClient, 8)
	bruno := testClient("bruno", model.RoleClient, 8)
	hub.Register(admin)
	hub.Register(ana)
	hub.Register(bruno)

	emit(hub, model.EventMessageNew, "ana", true, map[string]string{"content": "note"})
	emit(hub, model.EventMessageNew, "bruno", false, map[string]string{"content": "for bruno"})
	emit(hub, model.EventConversationUpdated, "ana", false, map[string]string{"id": "c1"})

	assert.Equal(t, model.EventMessageNew, receive(t, admin).Type)
	assert.Equal(t, model.EventMessageNew, receive(t, admin).Type)
	assert.Equal(t, model.EventConversationUpdated, receive(t, admin).Type)

	ev := receive(t, ana)
	assert.Equal(t, model.EventConversationUpdated, ev.Type)
	assert.JSONEq(t, `{"id":"c1"}`, string(ev.Data))

	ev = receive(t, bruno)
	assert.JSONEq(t, `{"content":"for bruno"}`, string(ev.Data))

	hub.Unregister(bruno)
	stopped(t, bruno)
	assert.Eventually(t, func() bool { return hub.OnlineCount() == 2 }, time.Second, 10*time.Millisecond)
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewWSHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(&model.Envelope{Event: model.WSEvent{Type: model.EventMessageNew}})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked without a running hub")
	}
}

func TestHubEvictsSlowClient(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()
	defer hub.Shutdown()

	slow := testClient("a", model.RoleAdmin, 1)
	hub.Register(slow)
	for i := 0; i < 3; i++ {
		emit(hub, model.EventMessageNew, "ana", false, map[string]int{"n": i})
	}

	stopped(t, slow)
	assert.Eventually(t, func() bool { return hub.OnlineCount() == 0 }, time.Second, 10*time.Millisecond)

	// the connection's read loop may still answer a ping after eviction
	assert.NotPanics(t, func() {
		assert.False(t, slow.Queue([]byte(`{"type":"pong"}`)))
	})
	hub.Unregister(slow)
}

func TestHubCallsReturnAfterShutdown(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()
	c := testClient("a", model.RoleAdmin, 1)
	hub.Register(c)
	hub.Shutdown()

	done := make(chan struct{})
	go func() {
		hub.Unregister(c)
		hub.Register(testClient("b", model.RoleClient, 1))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Register/Unregister blocked after Shutdown")
	}
	stopped(t, c)
}
