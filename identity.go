package main

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// Identity holds the session keypair and the mutable display nickname.
// The keypair never changes for the lifetime of the session; the
// nickname can be changed at any time without touching the keys or
// any event already sent.
type Identity struct {
	SK        string
	PK        string
	NPub      string
	Nickname  string
	Ephemeral bool
}

// Word lists for ephemeral nicknames, {adjective}{noun}{number}.
var (
	nickAdjectives = []string{
		"shadow", "cyber", "quantum", "neon", "digital", "ghost", "phantom", "void",
		"dark", "bright", "swift", "silent", "electric", "cosmic", "neural", "viral",
		"stealth", "rapid", "mystic", "plasma", "atomic", "crystal", "sonic", "lunar",
		"solar", "techno", "binary", "matrix", "nexus", "vertex", "zenith", "omega",
	}
	nickNouns = []string{
		"agent", "runner", "hacker", "coder", "node", "byte", "bit", "cipher",
		"protocol", "stream", "signal", "pulse", "wave", "core", "link", "port",
		"terminal", "console", "daemon", "thread", "process", "kernel", "shell", "root",
		"user", "admin", "ghost", "spirit", "entity", "being", "form", "shadow",
	}
)

func randomNickname() string {
	adj := nickAdjectives[rand.Intn(len(nickAdjectives))]
	noun := nickNouns[rand.Intn(len(nickNouns))]
	return fmt.Sprintf("%s%s%d", adj, noun, 100+rand.Intn(9900))
}

// generateIdentity creates a fresh throwaway identity with a random nickname.
func generateIdentity() (Identity, error) {
	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to derive public key: %w", err)
	}
	npub, err := nip19.EncodePublicKey(pk)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to encode npub: %w", err)
	}
	return Identity{
		SK:        sk,
		PK:        pk,
		NPub:      npub,
		Nickname:  randomNickname(),
		Ephemeral: true,
	}, nil
}

// identityFromSecret builds a persistent identity from an nsec or raw
// hex secret key. The default nickname is derived from the pubkey.
func identityFromSecret(secret string) (Identity, error) {
	sk := strings.TrimSpace(secret)
	if strings.HasPrefix(sk, "nsec") {
		prefix, val, err := nip19.Decode(sk)
		if err != nil {
			return Identity{}, fmt.Errorf("failed to decode nsec: %w", err)
		}
		if prefix != "nsec" {
			return Identity{}, fmt.Errorf("expected nsec prefix, got %s", prefix)
		}
		sk = val.(string)
	}

	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid secret key: %w", err)
	}
	npub, err := nip19.EncodePublicKey(pk)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to encode npub: %w", err)
	}
	return Identity{
		SK:       sk,
		PK:       pk,
		NPub:     npub,
		Nickname: "user" + shortPK(pk),
	}, nil
}

// SetNickname changes the display name only. It never touches the
// keypair and never publishes anything.
func (id *Identity) SetNickname(name string) {
	id.Nickname = name
}

// Sign signs an event draft in place with the session secret key.
func (id Identity) Sign(evt *nostr.Event) error {
	if err := evt.Sign(id.SK); err != nil {
		return fmt.Errorf("failed to sign event: %w", err)
	}
	return nil
}

// shortPK returns the first 8 characters of a public key for display.
func shortPK(pk string) string {
	if len(pk) > 8 {
		return pk[:8]
	}
	return pk
}
