package main

import (
	"errors"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
)

// Ephemeral chat events use kind 20000: relays broadcast them to live
// subscribers but are not expected to store them.
const chatEventKind = 20000

const clientTag = "geochat"

// Parse failure modes. Rejected events are dropped and logged, never
// surfaced to the user.
var (
	errWrongKind      = errors.New("unexpected event kind")
	errMalformedEvent = errors.New("malformed event")
	errBadSignature   = errors.New("bad signature")
)

// buildChatEvent constructs an unsigned kind-20000 draft for a channel
// message. The nickname tag captures the display name at build time;
// later nickname changes do not alter drafts already built.
func buildChatEvent(channelKey, body string, id Identity) nostr.Event {
	return nostr.Event{
		Kind:      chatEventKind,
		CreatedAt: nostr.Now(),
		Tags: nostr.Tags{
			{"g", channelKey},
			{"n", id.Nickname},
			{"t", clientTag},
			{"client", clientTag},
		},
		Content: body,
	}
}

// parseChatEvent validates an inbound event and converts it into a
// Message. It checks the kind, the structural shape (exactly one
// non-empty g tag) and the signature against the embedded pubkey.
// The n tag is optional; absent or empty it falls back to an
// anon<pk8> display name. CreatedAt is sender-supplied and kept for
// display only.
func parseChatEvent(evt *nostr.Event) (Message, error) {
	if evt.Kind != chatEventKind {
		return Message{}, fmt.Errorf("%w: kind %d", errWrongKind, evt.Kind)
	}

	var channelKey string
	geohashTags := 0
	nickname := ""
	for _, tag := range evt.Tags {
		if len(tag) < 2 {
			continue
		}
		switch tag[0] {
		case "g":
			geohashTags++
			channelKey = tag[1]
		case "n":
			if nickname == "" {
				nickname = tag[1]
			}
		}
	}
	if geohashTags != 1 || channelKey == "" {
		return Message{}, fmt.Errorf("%w: want exactly one g tag, got %d", errMalformedEvent, geohashTags)
	}
	if nickname == "" {
		nickname = "anon" + shortPK(evt.PubKey)
	}

	ok, err := evt.CheckSignature()
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", errBadSignature, err)
	}
	if !ok {
		return Message{}, errBadSignature
	}

	return Message{
		ID:         evt.ID,
		ChannelKey: channelKey,
		PubKey:     evt.PubKey,
		Nickname:   nickname,
		Content:    evt.Content,
		CreatedAt:  evt.CreatedAt,
	}, nil
}
