package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"condorserver/condor"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap/zaptest"
)

func TestChannelRoundTrip(t *testing.T) {
	if got := Channel(42); got != "room:42" {
		t.Fatalf("Channel(42) = %q", got)
	}
	id, err := ParseChannel("room:42")
	if err != nil || id != 42 {
		t.Fatalf("ParseChannel = %d, %v", id, err)
	}
	for _, bad := range []string{"room:", "room:abc", "session:42", "42"} {
		if _, err := ParseChannel(bad); err == nil {
			t.Errorf("ParseChannel(%q) accepted", bad)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("JST", 9*60*60))
	ev := condor.Event{
		Name:    condor.EventPlayerUnlocked,
		GameID:  7,
		Payload: condor.PlayerUnlockedPayload{PlayerID: 3},
	}
	message, err := Encode(ev, at)
	if err != nil {
		t.Fatal(err)
	}
	env, err := Decode(message)
	if err != nil {
		t.Fatal(err)
	}
	if env.ID == "" || env.Event != ev.Name || env.GameID != 7 {
		t.Errorf("envelope = %+v", env)
	}
	if !env.PublishedAt.Equal(at) || env.PublishedAt.Location() != time.UTC {
		t.Errorf("publishedAt = %v", env.PublishedAt)
	}
	var payload condor.PlayerUnlockedPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.PlayerID != 3 || payload.IsReady {
		t.Errorf("payload = %+v", payload)
	}

	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("Decode accepted garbage")
	}
}

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	sub := rdb.PSubscribe(ctx, ChannelPattern)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatal(err)
	}

	publisher := NewRedisPublisher(rdb, zaptest.NewLogger(t))
	err := publisher.Publish(ctx, condor.Event{
		Name:    condor.EventIdentificationUpdate,
		GameID:  5,
		Payload: condor.IdentificationUpdatePayload{VotedCount: 2, TotalEligibleVoters: 6},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Channel != "room:5" {
			t.Errorf("channel = %q", msg.Channel)
		}
		env, err := Decode([]byte(msg.Payload))
		if err != nil {
			t.Fatal(err)
		}
		if env.Event != condor.EventIdentificationUpdate || env.GameID != 5 {
			t.Errorf("envelope = %+v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestPublishFailsWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	publisher := NewRedisPublisher(rdb, zaptest.NewLogger(t))
	err := publisher.Publish(context.Background(), condor.Event{Name: condor.EventRoomUpdate, GameID: 1})
	if err == nil {
		t.Fatal("Publish succeeded without Redis")
	}
}
