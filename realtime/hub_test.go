package realtime

import (
	"sync"
	"testing"
)

// chanSender collects messages in order, like the write pump's channel.
type chanSender struct {
	mu       sync.Mutex
	messages []Message
	capacity int
	closed   bool
}

func newChanSender(capacity int) *chanSender {
	return &chanSender{capacity: capacity}
}

func (s *chanSender) Send(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.messages) >= s.capacity {
		return false
	}
	s.messages = append(s.messages, msg)
	return true
}

func (s *chanSender) CloseSlow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *chanSender) received() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *chanSender) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestHub_JoinAndLeave(t *testing.T) {
	hub := NewHub()

	alice := NewClient(1, "alice", newChanSender(16))
	bob := NewClient(2, "bob", newChanSender(16))

	room := hub.Join(42, alice)
	if room.Size() != 1 {
		t.Errorf("Expected 1 client, got %d", room.Size())
	}

	if got := hub.Join(42, bob); got != room {
		t.Error("Expected both clients in the same room")
	}
	if room.Size() != 2 {
		t.Errorf("Expected 2 clients, got %d", room.Size())
	}

	if !hub.Leave(42, alice) {
		t.Error("Expected leave to report the client was subscribed")
	}
	if hub.Leave(42, alice) {
		t.Error("Expected second leave to report not subscribed")
	}

	hub.Leave(42, bob)
	if hub.Room(42) != nil {
		t.Error("Expected the empty room to be garbage-collected")
	}
}

func TestRoom_BroadcastReachesEveryone(t *testing.T) {
	hub := NewHub()

	senders := make([]*chanSender, 3)
	for i := range senders {
		senders[i] = newChanSender(16)
		hub.Join(7, NewClient(uint(i+1), "player", senders[i]))
	}

	room := hub.Room(7)
	room.Broadcast(Message{Type: EventGameStarted})

	for i, s := range senders {
		msgs := s.received()
		if len(msgs) != 1 || msgs[0].Type != EventGameStarted {
			t.Errorf("Client %d: expected one game_started message, got %v", i, msgs)
		}
	}
}

func TestRoom_DoPreservesEmitOrder(t *testing.T) {
	hub := NewHub()
	sender := newChanSender(1024)
	hub.Join(7, NewClient(1, "alice", sender))
	room := hub.Room(7)

	// Concurrent Do calls each emit a pair; pairs must never interleave.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room.Do(func(emit func(Message)) {
				emit(Message{Type: EventNextQuestion})
				emit(Message{Type: EventLeaderboardUpdate})
			})
		}()
	}
	wg.Wait()

	msgs := sender.received()
	if len(msgs) != 100 {
		t.Fatalf("Expected 100 messages, got %d", len(msgs))
	}
	for i := 0; i < len(msgs); i += 2 {
		if msgs[i].Type != EventNextQuestion || msgs[i+1].Type != EventLeaderboardUpdate {
			t.Fatalf("Pair %d interleaved: %s then %s", i/2, msgs[i].Type, msgs[i+1].Type)
		}
	}
}

func TestRoom_DoSnapshotsAreMonotonic(t *testing.T) {
	hub := NewHub()
	sender := newChanSender(1024)
	hub.Join(7, NewClient(1, "alice", sender))
	room := hub.Room(7)

	// Each Do block commits a score bump and emits a snapshot read inside the
	// block. Snapshots read under the room lock can never go out broadcast
	// order, so every client must observe strictly increasing totals.
	var mu sync.Mutex
	score := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room.Do(func(emit func(Message)) {
				mu.Lock()
				score++
				snapshot := score
				mu.Unlock()
				emit(Message{Type: EventLeaderboardUpdate, Payload: snapshot})
			})
		}()
	}
	wg.Wait()

	msgs := sender.received()
	if len(msgs) != 50 {
		t.Fatalf("Expected 50 messages, got %d", len(msgs))
	}
	prev := 0
	for i, msg := range msgs {
		got := msg.Payload.(int)
		if got <= prev {
			t.Fatalf("Message %d carries total %d after %d, snapshots went backwards", i, got, prev)
		}
		prev = got
	}
}

func TestRoom_SlowClientIsDropped(t *testing.T) {
	hub := NewHub()

	slow := newChanSender(1)
	fast := newChanSender(16)
	hub.Join(7, NewClient(1, "slow", slow))
	hub.Join(7, NewClient(2, "fast", fast))

	room := hub.Room(7)
	room.Broadcast(Message{Type: EventPlayerJoined})
	room.Broadcast(Message{Type: EventNextQuestion})

	if room.Size() != 1 {
		t.Errorf("Expected the slow client to be dropped, room size %d", room.Size())
	}
	if !slow.isClosed() {
		t.Error("Expected the slow client's connection to be closed")
	}
	if got := len(fast.received()); got != 2 {
		t.Errorf("Expected the fast client to get both messages, got %d", got)
	}
}

func TestRoom_HasUser(t *testing.T) {
	hub := NewHub()

	tab1 := NewClient(1, "alice", newChanSender(16))
	tab2 := NewClient(1, "alice", newChanSender(16))
	hub.Join(7, tab1)
	hub.Join(7, tab2)

	room := hub.Room(7)
	if !room.HasUser(1) {
		t.Error("Expected alice to be present")
	}

	hub.Leave(7, tab1)
	if !room.HasUser(1) {
		t.Error("Expected alice to stay present with a second tab open")
	}

	hub.Leave(7, tab2)
	if hub.Room(7) != nil {
		t.Error("Expected the room to be gone after the last tab closed")
	}
}
