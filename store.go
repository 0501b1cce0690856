package main

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// Message is one chat line as held by the store. Seq is the local
// arrival counter and the authoritative ordering key; CreatedAt is
// the sender's claim and is used for display only.
type Message struct {
	ID         string
	ChannelKey string
	PubKey     string
	Nickname   string
	Content    string
	CreatedAt  nostr.Timestamp
	Seq        uint64
	IsMine     bool
}

// Channel is one geohash channel record. Records are created
// implicitly by inbound traffic (Joined=false, "listening") or
// explicitly by join, and survive leave so history is kept.
type Channel struct {
	Key          string
	Joined       bool
	Messages     []Message
	LastActivity time.Time

	nextSeq uint64
}

// ChannelInfo is the read-only channel summary handed to the UI.
type ChannelInfo struct {
	Key          string
	Joined       bool
	MessageCount int
}

// publisher is the outbound side the store needs from the relay pool.
type publisher interface {
	Publish(evt nostr.Event) error
}

// ChannelStore is the sole mutator of channel and message state. All
// producers (relay decode paths and the local send path) enter
// through its mutex-serialized methods, so Seq assignment is strictly
// serial and observers always see an append-only, arrival-ordered
// sequence per channel.
type ChannelStore struct {
	mu        sync.Mutex
	channels  map[string]*Channel
	dedup     *dedup
	retention int

	// UI-reported view state used only to compute the autoscroll hint.
	current  string
	atBottom bool

	identity *Identity
	pub      publisher
}

func newChannelStore(id *Identity, pub publisher, retention, dedupCapacity int) *ChannelStore {
	if retention <= 0 {
		retention = defaultMaxMessages
	}
	return &ChannelStore{
		channels:  make(map[string]*Channel),
		dedup:     newDedup(dedupCapacity),
		retention: retention,
		atBottom:  true,
		identity:  id,
		pub:       pub,
	}
}

// channelLocked looks up or implicitly creates the record for key.
func (s *ChannelStore) channelLocked(key string) *Channel {
	ch, ok := s.channels[key]
	if !ok {
		ch = &Channel{Key: key, LastActivity: time.Now()}
		s.channels[key] = ch
	}
	return ch
}

// RouteInbound runs a parsed message through the dedup gate and, if
// accepted, appends it to its channel in arrival order, trimming the
// oldest message when the channel exceeds the retention cap. It
// reports whether the message was accepted and whether the UI should
// scroll to the bottom (message landed in the current channel while
// the view was already at the bottom).
func (s *ChannelStore) RouteInbound(msg Message) (accepted, autoscroll bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.routeLocked(msg)
}

func (s *ChannelStore) routeLocked(msg Message) (accepted, autoscroll bool) {
	if !s.dedup.shouldAccept(msg.ChannelKey, msg.ID) {
		return false, false
	}

	ch := s.channelLocked(msg.ChannelKey)
	msg.Seq = ch.nextSeq
	ch.nextSeq++
	msg.IsMine = msg.PubKey == s.identity.PK

	ch.Messages = append(ch.Messages, msg)
	if len(ch.Messages) > s.retention {
		ch.Messages = ch.Messages[len(ch.Messages)-s.retention:]
	}
	ch.LastActivity = time.Now()

	return true, msg.ChannelKey == s.current && s.atBottom
}

// Join marks the channel as joined, creating it if needed. Idempotent.
func (s *ChannelStore) Join(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelLocked(key).Joined = true
}

// Leave flips Joined off but keeps the record and its history so the
// channel stays visible as a listening channel. Leaving a channel
// that was never seen is a no-op.
func (s *ChannelStore) Leave(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.channels[key]; ok {
		ch.Joined = false
	}
}

// Send builds, signs and locally echoes a message for the channel,
// then fans it out to the relays. The local echo goes through the
// same routing path as inbound traffic, so its ID lands in the dedup
// window and relay echoes of our own event are rejected later. The
// echo happens even when no relay is reachable; in that case the
// returned error is the ErrNoRelaysAvailable advisory.
func (s *ChannelStore) Send(key, body string) (Message, error) {
	s.mu.Lock()
	evt := buildChatEvent(key, body, *s.identity)
	if err := s.identity.Sign(&evt); err != nil {
		s.mu.Unlock()
		return Message{}, err
	}

	msg := Message{
		ID:         evt.ID,
		ChannelKey: key,
		PubKey:     s.identity.PK,
		Nickname:   s.identity.Nickname,
		Content:    body,
		CreatedAt:  evt.CreatedAt,
	}
	s.routeLocked(msg)
	s.mu.Unlock()

	if err := s.pub.Publish(evt); err != nil {
		log.Printf("send: publish failed: %v", err)
		return msg, err
	}
	return msg, nil
}

// SetCurrent records which channel the UI is displaying.
func (s *ChannelStore) SetCurrent(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = key
}

// SetAtBottom records whether the UI scroll position is at the bottom.
// The store only uses it for the autoscroll hint; the offset itself
// stays UI-owned.
func (s *ChannelStore) SetAtBottom(atBottom bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.atBottom = atBottom
}

// Joined returns the joined channel keys, most recent activity first.
func (s *ChannelStore) Joined() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key, ch := range s.channels {
		if ch.Joined {
			keys = append(keys, key)
		}
	}
	s.sortByActivityLocked(keys)
	return keys
}

// Channels returns summaries of every known channel, joined or
// listening, most recent activity first.
func (s *ChannelStore) Channels() []ChannelInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.channels))
	for key := range s.channels {
		keys = append(keys, key)
	}
	s.sortByActivityLocked(keys)
	infos := make([]ChannelInfo, 0, len(keys))
	for _, key := range keys {
		ch := s.channels[key]
		infos = append(infos, ChannelInfo{Key: key, Joined: ch.Joined, MessageCount: len(ch.Messages)})
	}
	return infos
}

func (s *ChannelStore) sortByActivityLocked(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		return s.channels[keys[i]].LastActivity.After(s.channels[keys[j]].LastActivity)
	})
}

// MessagesFor returns a copy of the channel's message sequence.
func (s *ChannelStore) MessagesFor(key string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[key]
	if !ok {
		return nil
	}
	out := make([]Message, len(ch.Messages))
	copy(out, ch.Messages)
	return out
}

// IsJoined reports whether the channel exists and is joined.
func (s *ChannelStore) IsJoined(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[key]
	return ok && ch.Joined
}
