package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr"
)

func testIdentity(t *testing.T) Identity {
	t.Helper()
	id, err := generateIdentity()
	if err != nil {
		t.Fatalf("generateIdentity: %v", err)
	}
	return id
}

func signedChatEvent(t *testing.T, id Identity, channelKey, body string) nostr.Event {
	t.Helper()
	evt := buildChatEvent(channelKey, body, id)
	if err := id.Sign(&evt); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return evt
}

func TestBuildChatEvent(t *testing.T) {
	id := testIdentity(t)
	id.SetNickname("tester")

	evt := buildChatEvent("dr5reg", "hi there", id)

	if evt.Kind != chatEventKind {
		t.Errorf("kind = %d, want %d", evt.Kind, chatEventKind)
	}
	if evt.Content != "hi there" {
		t.Errorf("content = %q, want %q", evt.Content, "hi there")
	}

	wantTags := map[string]string{"g": "dr5reg", "n": "tester", "t": clientTag, "client": clientTag}
	for key, want := range wantTags {
		found := false
		for _, tag := range evt.Tags {
			if len(tag) >= 2 && tag[0] == key {
				if tag[1] != want {
					t.Errorf("tag %s = %q, want %q", key, tag[1], want)
				}
				found = true
			}
		}
		if !found {
			t.Errorf("missing %s tag", key)
		}
	}
}

func TestNicknameChangeDoesNotAlterDraft(t *testing.T) {
	id := testIdentity(t)
	id.SetNickname("before")

	evt := buildChatEvent("dr5reg", "x", id)
	id.SetNickname("after")

	for _, tag := range evt.Tags {
		if len(tag) >= 2 && tag[0] == "n" && tag[1] != "before" {
			t.Errorf("draft nickname tag = %q, want %q", tag[1], "before")
		}
	}
}

func TestParseChatEventRoundtrip(t *testing.T) {
	id := testIdentity(t)
	id.SetNickname("alice")
	evt := signedChatEvent(t, id, "dr5reg", "hello world")

	msg, err := parseChatEvent(&evt)
	if err != nil {
		t.Fatalf("parseChatEvent: %v", err)
	}

	if msg.ID != evt.ID {
		t.Errorf("id = %s, want %s", msg.ID, evt.ID)
	}
	if msg.ChannelKey != "dr5reg" {
		t.Errorf("channel = %q, want %q", msg.ChannelKey, "dr5reg")
	}
	if msg.Nickname != "alice" {
		t.Errorf("nickname = %q, want %q", msg.Nickname, "alice")
	}
	if msg.PubKey != id.PK {
		t.Errorf("pubkey = %s, want %s", msg.PubKey, id.PK)
	}
	if msg.Content != "hello world" {
		t.Errorf("content = %q, want %q", msg.Content, "hello world")
	}
	if msg.CreatedAt != evt.CreatedAt {
		t.Errorf("created_at = %d, want %d", msg.CreatedAt, evt.CreatedAt)
	}
}

func TestParseChatEventRejections(t *testing.T) {
	id := testIdentity(t)

	t.Run("wrong kind", func(t *testing.T) {
		evt := buildChatEvent("dr5reg", "x", id)
		evt.Kind = 1
		if err := id.Sign(&evt); err != nil {
			t.Fatal(err)
		}
		if _, err := parseChatEvent(&evt); !errors.Is(err, errWrongKind) {
			t.Errorf("err = %v, want errWrongKind", err)
		}
	})

	t.Run("missing g tag", func(t *testing.T) {
		evt := nostr.Event{
			Kind:      chatEventKind,
			CreatedAt: nostr.Now(),
			Tags:      nostr.Tags{{"n", "alice"}},
			Content:   "x",
		}
		if err := id.Sign(&evt); err != nil {
			t.Fatal(err)
		}
		if _, err := parseChatEvent(&evt); !errors.Is(err, errMalformedEvent) {
			t.Errorf("err = %v, want errMalformedEvent", err)
		}
	})

	t.Run("two g tags", func(t *testing.T) {
		evt := nostr.Event{
			Kind:      chatEventKind,
			CreatedAt: nostr.Now(),
			Tags:      nostr.Tags{{"g", "dr5reg"}, {"g", "u33db"}},
			Content:   "x",
		}
		if err := id.Sign(&evt); err != nil {
			t.Fatal(err)
		}
		if _, err := parseChatEvent(&evt); !errors.Is(err, errMalformedEvent) {
			t.Errorf("err = %v, want errMalformedEvent", err)
		}
	})

	t.Run("empty g tag value", func(t *testing.T) {
		evt := nostr.Event{
			Kind:      chatEventKind,
			CreatedAt: nostr.Now(),
			Tags:      nostr.Tags{{"g", ""}},
			Content:   "x",
		}
		if err := id.Sign(&evt); err != nil {
			t.Fatal(err)
		}
		if _, err := parseChatEvent(&evt); !errors.Is(err, errMalformedEvent) {
			t.Errorf("err = %v, want errMalformedEvent", err)
		}
	})

	t.Run("tampered content", func(t *testing.T) {
		evt := signedChatEvent(t, id, "dr5reg", "original")
		evt.Content = "forged"
		evt.ID = evt.GetID()
		_, err := parseChatEvent(&evt)
		if !errors.Is(err, errBadSignature) {
			t.Fatalf("err = %v, want errBadSignature", err)
		}
		// Verification failing without an underlying error must not
		// read "bad signature: <nil>".
		if strings.Contains(err.Error(), "<nil>") {
			t.Errorf("error text %q leaks a nil cause", err.Error())
		}
	})

	t.Run("unsigned", func(t *testing.T) {
		evt := buildChatEvent("dr5reg", "x", id)
		evt.ID = evt.GetID()
		if _, err := parseChatEvent(&evt); !errors.Is(err, errBadSignature) {
			t.Errorf("err = %v, want errBadSignature", err)
		}
	})
}

func TestParseChatEventNicknameFallback(t *testing.T) {
	id := testIdentity(t)

	t.Run("no n tag", func(t *testing.T) {
		evt := nostr.Event{
			Kind:      chatEventKind,
			CreatedAt: nostr.Now(),
			Tags:      nostr.Tags{{"g", "dr5reg"}},
			Content:   "x",
		}
		if err := id.Sign(&evt); err != nil {
			t.Fatal(err)
		}
		msg, err := parseChatEvent(&evt)
		if err != nil {
			t.Fatalf("parseChatEvent: %v", err)
		}
		if want := "anon" + id.PK[:8]; msg.Nickname != want {
			t.Errorf("nickname = %q, want %q", msg.Nickname, want)
		}
	})

	t.Run("empty n tag", func(t *testing.T) {
		evt := nostr.Event{
			Kind:      chatEventKind,
			CreatedAt: nostr.Now(),
			Tags:      nostr.Tags{{"g", "dr5reg"}, {"n", ""}},
			Content:   "x",
		}
		if err := id.Sign(&evt); err != nil {
			t.Fatal(err)
		}
		msg, err := parseChatEvent(&evt)
		if err != nil {
			t.Fatalf("parseChatEvent: %v", err)
		}
		if want := "anon" + id.PK[:8]; msg.Nickname != want {
			t.Errorf("nickname = %q, want %q", msg.Nickname, want)
		}
	})
}
