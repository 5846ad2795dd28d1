package hub

import (
	"reflect"
	"testing"

	"lan_messenger/pkg/logger"
)

func newTestHub() *Hub {
	return New(logger.New("error"))
}

func drain(c *Client) [][]byte {
	var got [][]byte
	for {
		select {
		case payload := <-c.send:
			got = append(got, payload)
		default:
			return got
		}
	}
}

func TestOnlineUsersDeduplicatesSessions(t *testing.T) {
	h := newTestHub()

	h.Register(NewClient(nil, "bob"))
	h.Register(NewClient(nil, "alice"))
	h.Register(NewClient(nil, "alice"))

	got := h.OnlineUsers()
	want := []string{"alice", "bob"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("OnlineUsers() = %v, want %v", got, want)
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	h := newTestHub()

	alice := NewClient(nil, "alice")
	bob := NewClient(nil, "bob")
	h.Register(alice)
	h.Register(bob)

	h.Broadcast([]byte("hello"), alice)

	if got := drain(alice); len(got) != 0 {
		t.Fatalf("excluded client received %d payloads", len(got))
	}
	if got := drain(bob); len(got) != 1 || string(got[0]) != "hello" {
		t.Fatalf("bob received %v, want [hello]", got)
	}
}

func TestBroadcastPrunesClosedSessions(t *testing.T) {
	h := newTestHub()

	alice := NewClient(nil, "alice")
	bob := NewClient(nil, "bob")
	h.Register(alice)
	h.Register(bob)

	bob.Close()
	h.BroadcastAll([]byte("hello"))

	got := h.OnlineUsers()
	want := []string{"alice"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("after prune OnlineUsers() = %v, want %v", got, want)
	}
	if len(drain(alice)) != 1 {
		t.Fatalf("healthy client lost the broadcast")
	}
}

func TestSendToUserPicksFirstRegisteredSession(t *testing.T) {
	h := newTestHub()

	first := NewClient(nil, "bob")
	second := NewClient(nil, "bob")
	h.Register(first)
	h.Register(second)

	if !h.SendToUser("bob", []byte("ring")) {
		t.Fatalf("SendToUser() = false, want true")
	}

	if got := drain(first); len(got) != 1 {
		t.Fatalf("first session received %d payloads, want 1", len(got))
	}
	if got := drain(second); len(got) != 0 {
		t.Fatalf("second session received %d payloads, want 0", len(got))
	}
}

func TestSendToUserFallsBackAfterFirstSessionDrops(t *testing.T) {
	h := newTestHub()

	first := NewClient(nil, "bob")
	second := NewClient(nil, "bob")
	h.Register(first)
	h.Register(second)
	h.Unregister(first)

	if !h.SendToUser("bob", []byte("ring")) {
		t.Fatalf("SendToUser() = false, want true")
	}
	if got := drain(second); len(got) != 1 {
		t.Fatalf("surviving session received %d payloads, want 1", len(got))
	}
}

func TestSendToUserOfflineIsSilent(t *testing.T) {
	h := newTestHub()

	if h.SendToUser("ghost", []byte("ring")) {
		t.Fatalf("SendToUser() = true for offline user")
	}
}

func TestTypingUsersSorted(t *testing.T) {
	h := newTestHub()

	h.StartTyping("carol")
	h.StartTyping("alice")
	h.StartTyping("bob")
	h.StopTyping("bob")

	got := h.TypingUsers()
	want := []string{"alice", "carol"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TypingUsers() = %v, want %v", got, want)
	}
}

func TestEnqueueAfterCloseFails(t *testing.T) {
	c := NewClient(nil, "alice")
	c.Close()
	c.Close() // idempotent

	if c.Enqueue([]byte("late")) {
		t.Fatalf("Enqueue() = true on closed client")
	}
}
