package connection

import (
	"context"
	"testing"
	"time"

	"condorserver/condor/broadcast"
	"condorserver/models"

	"go.uber.org/zap/zaptest"
)

func newClient(id string, gameID, playerID uint, buffer int) *models.Client {
	return &models.Client{ID: id, GameID: gameID, PlayerID: playerID, Send: make(chan []byte, buffer)}
}

func TestHubBroadcastsPerRoom(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	a := newClient("a", 1, 10, 1)
	b := newClient("b", 1, 11, 1)
	other := newClient("c", 2, 20, 1)
	for _, c := range []*models.Client{a, b, other} {
		hub.Register(c)
	}
	if hub.Count(1) != 2 || hub.Count(2) != 1 {
		t.Fatalf("counts = %d/%d", hub.Count(1), hub.Count(2))
	}

	hub.Broadcast(1, []byte("hello"))
	for _, c := range []*models.Client{a, b} {
		select {
		case msg := <-c.Send:
			if string(msg) != "hello" {
				t.Errorf("%s got %q", c.ID, msg)
			}
		default:
			t.Errorf("%s got nothing", c.ID)
		}
	}
	select {
	case msg := <-other.Send:
		t.Errorf("other room got %q", msg)
	default:
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	slow := newClient("slow", 1, 10, 0)
	hub.Register(slow)

	hub.Broadcast(1, []byte("x"))
	if hub.Count(1) != 0 {
		t.Fatal("slow client still registered")
	}
	if _, ok := <-slow.Send; ok {
		t.Error("send channel not closed")
	}
	// 外された後のUnregisterは何もしない
	hub.Unregister(slow)
}

func TestHubConnected(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	first := newClient("first", 1, 10, 1)
	second := newClient("second", 1, 10, 1)
	hub.Register(first)
	hub.Register(second)

	hub.Unregister(first)
	if !hub.Connected(1, 10) {
		t.Error("player with a second tab reported offline")
	}
	hub.Unregister(second)
	if hub.Connected(1, 10) {
		t.Error("player reported online with no connections")
	}
	hub.Unregister(second)
}

func TestHubRunForwardsRedisMessages(t *testing.T) {
	mr, rdb := newRedis(t)
	hub := NewHub(zaptest.NewLogger(t))
	client := newClient("a", 3, 30, 4)
	hub.Register(client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx, rdb) }()
	waitFor(t, func() bool { return mr.PubSubNumPat() > 0 })

	if err := rdb.Publish(context.Background(), broadcast.Channel(3), "payload").Err(); err != nil {
		t.Fatal(err)
	}
	// マッチしないチャンネルは無視される
	if err := rdb.Publish(context.Background(), "room:oops", "bad").Err(); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-client.Send:
		if string(msg) != "payload" {
			t.Errorf("got %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not forwarded")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
