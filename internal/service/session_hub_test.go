package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func clientCount(h *SessionHub, userID uint) int {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID])
}

func TestHubDeliversOnlyToOwningSession(t *testing.T) {
	h := NewSessionHub(nil)
	go h.Run()
	defer h.Stop()

	mine := &wsClient{hub: h, send: make(chan []byte, 4), userID: 5, testID: 7}
	otherTest := &wsClient{hub: h, send: make(chan []byte, 4), userID: 5, testID: 8}
	otherUser := &wsClient{hub: h, send: make(chan []byte, 4), userID: 6, testID: 7}
	for _, c := range []*wsClient{mine, otherTest, otherUser} {
		h.register <- c
	}

	h.Publish(SessionEvent{Type: EventTick, UserID: 5, TestID: 7, Data: map[string]int{"remainingSeconds": 42}})

	select {
	case msg := <-mine.send:
		var ev struct {
			Type   string         `json:"type"`
			TestID uint           `json:"testId"`
			Data   map[string]int `json:"data"`
		}
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("payload %s: %v", msg, err)
		}
		if ev.Type != EventTick || ev.TestID != 7 || ev.Data["remainingSeconds"] != 42 {
			t.Fatalf("event = %+v", ev)
		}
		if strings.Contains(string(msg), "userId") {
			t.Fatalf("user id leaked into payload: %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	// Run handles one message at a time, so this returns after the dispatch
	h.register <- &wsClient{hub: h, send: make(chan []byte, 1), userID: 99}
	if len(otherTest.send) != 0 || len(otherUser.send) != 0 {
		t.Fatal("event delivered outside its session")
	}
}

func TestHubStopClosesClients(t *testing.T) {
	h := NewSessionHub(nil)
	go h.Run()

	c := &wsClient{hub: h, send: make(chan []byte, 1), userID: 5, testID: 7}
	h.register <- c
	h.Stop()

	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatal("unexpected message after Stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed by Stop")
	}
	// must not block once the hub is gone
	h.unregisterClient(c)
	h.Publish(SessionEvent{Type: EventState, UserID: 5, TestID: 7})
}

func TestServeSessionWsStreamsEvents(t *testing.T) {
	h := NewSessionHub(nil)
	go h.Run()
	defer h.Stop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSessionWs(h, w, r, 5, 7)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, "registration", func() bool { return clientCount(h, 5) == 1 })

	h.Navigate(Navigation{UserID: 5, TestID: 7, Path: "/topics", Reason: "redirect"})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev struct {
		Type string     `json:"type"`
		Data Navigation `json:"data"`
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != EventNavigate || ev.Data.Path != "/topics" || ev.Data.Reason != "redirect" {
		t.Fatalf("event = %+v", ev)
	}

	if err := conn.WriteJSON(map[string]string{"type": "PING"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var pong SessionEvent
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if pong.Type != "PONG" || pong.TestID != 7 {
		t.Fatalf("pong = %+v", pong)
	}

	conn.Close()
	waitFor(t, "unregistration", func() bool { return clientCount(h, 5) == 0 })
}
