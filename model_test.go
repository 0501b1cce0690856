package main

import (
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr"
)

func newTestModel(t *testing.T) *model {
	t.Helper()
	id, err := generateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	cfg := defaultConfig()
	pool := newRelayPool(nil)
	store := newChannelStore(&id, pool, cfg.MaxMessages, cfg.DedupCapacity)
	subs := newSubscriptionController(pool, cfg.Lookback(), cfg.SubscriptionLimit)
	m := newModel(cfg, &id, pool, store, subs, "")
	m.width = 100
	m.height = 30
	m.updateLayout()
	return &m
}

func TestRouteEventDropsBadSignature(t *testing.T) {
	m := newTestModel(t)

	peer, err := generateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	evt := buildChatEvent("dr5reg", "legit", peer)
	if err := peer.Sign(&evt); err != nil {
		t.Fatal(err)
	}
	evt.Content = "forged after signing"
	evt.ID = evt.GetID()

	m.routeEvent(&evt)

	if len(m.store.Channels()) != 0 {
		t.Error("malformed event mutated channel state")
	}
}

func TestRouteEventAcceptsValid(t *testing.T) {
	m := newTestModel(t)

	peer, err := generateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	evt := buildChatEvent("dr5reg", "hi", peer)
	if err := peer.Sign(&evt); err != nil {
		t.Fatal(err)
	}

	m.routeEvent(&evt)

	msgs := m.store.MessagesFor("dr5reg")
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Content != "hi" {
		t.Errorf("content = %q", msgs[0].Content)
	}
}

func TestJoinCommand(t *testing.T) {
	m := newTestModel(t)

	m.handleCommand("/join dr5reg")

	if !m.store.IsJoined("dr5reg") {
		t.Error("channel not joined")
	}
	if m.current != "dr5reg" {
		t.Errorf("current = %q, want dr5reg", m.current)
	}
	if filters := m.pool.currentFilters(); len(filters) != 1 {
		t.Errorf("got %d filters, want subscription for joined channel", len(filters))
	}
}

func TestJoinCommandStripsHashAndCase(t *testing.T) {
	m := newTestModel(t)

	m.handleCommand("/join #DR5REG")

	if !m.store.IsJoined("dr5reg") {
		t.Error("expected lowercased geohash to be joined")
	}
}

func TestJoinCommandRejectsInvalidGeohash(t *testing.T) {
	m := newTestModel(t)

	m.handleCommand("/join not_a_geohash!")

	if len(m.store.Joined()) != 0 {
		t.Error("invalid geohash was joined")
	}
	if !strings.Contains(m.statusMsg, "invalid geohash") {
		t.Errorf("statusMsg = %q, want invalid geohash notice", m.statusMsg)
	}
}

func TestLeaveCommandKeepsHistory(t *testing.T) {
	m := newTestModel(t)
	m.handleCommand("/join dr5reg")
	m.store.RouteInbound(Message{ID: "a", ChannelKey: "dr5reg", PubKey: "pk", Nickname: "x", Content: "kept", CreatedAt: nostr.Now()})

	m.handleCommand("/leave")

	if m.store.IsJoined("dr5reg") {
		t.Error("still joined after /leave")
	}
	if len(m.store.MessagesFor("dr5reg")) != 1 {
		t.Error("history lost on /leave")
	}
	if filters := m.pool.currentFilters(); filters != nil {
		t.Errorf("filters = %v, want cleared after leaving last channel", filters)
	}
}

func TestNickCommand(t *testing.T) {
	m := newTestModel(t)
	pk := m.identity.PK

	m.handleCommand("/nick salamander")

	if m.identity.Nickname != "salamander" {
		t.Errorf("nickname = %q, want salamander", m.identity.Nickname)
	}
	if m.identity.PK != pk {
		t.Error("nick change touched the keypair")
	}
}

func TestSendToAutoJoins(t *testing.T) {
	m := newTestModel(t)

	m.sendTo("dr5reg", "drive-by message")

	if !m.store.IsJoined("dr5reg") {
		t.Error("sendTo did not join the target channel")
	}
	msgs := m.store.MessagesFor("dr5reg")
	if len(msgs) != 1 || msgs[0].Content != "drive-by message" {
		t.Errorf("local echo missing: %v", msgs)
	}
}

func TestSendWithoutChannelIsAdvisory(t *testing.T) {
	m := newTestModel(t)

	m.sendTo("", "hello?")

	if len(m.store.Channels()) != 0 {
		t.Error("send without a channel created state")
	}
	if !strings.Contains(m.statusMsg, "/join") {
		t.Errorf("statusMsg = %q, want join hint", m.statusMsg)
	}
}

func TestCycleChannel(t *testing.T) {
	m := newTestModel(t)
	m.handleCommand("/join dr5reg")
	m.handleCommand("/join u33db")

	// u33db is current (joined last); cycling walks the
	// most-recent-first list and wraps to the status buffer.
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		m.cycleChannel()
		seen[m.current] = true
	}
	if !seen["dr5reg"] || !seen[""] {
		t.Errorf("cycle did not visit the other channel and the status buffer: %v", seen)
	}
}

func TestUnknownCommand(t *testing.T) {
	m := newTestModel(t)

	m.handleCommand("/frobnicate")

	if !strings.Contains(m.statusMsg, "unknown command") {
		t.Errorf("statusMsg = %q", m.statusMsg)
	}
}
