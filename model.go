package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nbd-wtf/go-nostr"
)

// inboundEventMsg carries one raw event from the merged relay stream.
type inboundEventMsg struct{ evt *nostr.Event }

// statusTickMsg refreshes the relay-state status bar.
type statusTickMsg time.Time

type model struct {
	cfg      Config
	identity *Identity
	pool     *RelayPool
	store    *ChannelStore
	subs     *subscriptionController

	width  int
	height int

	// current is the channel the viewport shows; empty means the
	// local status buffer.
	current string

	viewport viewport.Model
	input    textarea.Model

	// Local-only status lines (command feedback, connection changes).
	systemMsgs []Message
	statusMsg  string

	// QR overlay (non-empty = show full-screen QR)
	qrOverlay string
}

func newModel(cfg Config, id *Identity, pool *RelayPool, store *ChannelStore, subs *subscriptionController, autoJoin string) model {
	input := textarea.New()
	input.Placeholder = "type a message, /join a geohash, /help for commands"
	input.Prompt = "> "
	input.SetHeight(1)
	input.ShowLineNumbers = false
	input.Focus()

	vp := viewport.New(80, 20)

	m := model{
		cfg:      cfg,
		identity: id,
		pool:     pool,
		store:    store,
		subs:     subs,
		viewport: vp,
		input:    input,
	}

	m.addSystemMsg("welcome, " + id.Nickname)
	m.addSystemMsg(fmt.Sprintf("connecting to %d relays", len(cfg.Relays)))
	if autoJoin != "" {
		if isValidGeohash(autoJoin) {
			store.Join(autoJoin)
			subs.Sync(store.Joined())
			m.current = autoJoin
			store.SetCurrent(autoJoin)
			m.addSystemMsg("joined #" + autoJoin)
		} else {
			m.addSystemMsg("ignoring invalid auto-join geohash: " + autoJoin)
		}
	}
	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		waitForEvent(m.pool.Events()),
		statusTick(),
	)
}

// waitForEvent blocks on the merged relay stream and hands the next
// raw event to Update.
func waitForEvent(events <-chan *nostr.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return nil
		}
		return inboundEventMsg{evt}
	}
}

func statusTick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case statusTickMsg:
		return m, statusTick()

	case inboundEventMsg:
		m.routeEvent(msg.evt)
		return m, waitForEvent(m.pool.Events())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// routeEvent parses a raw relay event and routes it through the
// store. Malformed or badly signed events are dropped with a log line
// and no state change.
func (m *model) routeEvent(evt *nostr.Event) {
	parsed, err := parseChatEvent(evt)
	if err != nil {
		log.Printf("inbound: dropping event %s: %v", shortPK(evt.ID), err)
		return
	}

	accepted, autoscroll := m.store.RouteInbound(parsed)
	if !accepted {
		log.Printf("inbound: duplicate %s for #%s", shortPK(parsed.ID), parsed.ChannelKey)
		return
	}
	log.Printf("inbound: #%s <%s> seq accepted id=%s", parsed.ChannelKey, parsed.Nickname, shortPK(parsed.ID))

	if parsed.ChannelKey == m.current {
		if autoscroll {
			m.updateViewport()
		} else {
			m.setViewportContent()
		}
	}
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.qrOverlay != "" {
		m.qrOverlay = ""
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if text == "" {
			return m, nil
		}
		if strings.HasPrefix(text, "/") {
			return m.handleCommand(text)
		}
		return m.sendTo(m.current, text)

	case "tab":
		m.cycleChannel()
		return m, nil

	case "pgup":
		m.viewport.ScrollUp(10)
		m.store.SetAtBottom(m.viewport.AtBottom())
		return m, nil

	case "pgdown":
		m.viewport.ScrollDown(10)
		m.store.SetAtBottom(m.viewport.AtBottom())
		return m, nil

	case "end":
		m.viewport.GotoBottom()
		m.store.SetAtBottom(true)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// cycleChannel switches the viewport to the next known channel,
// wrapping back to the status buffer after the last one.
func (m *model) cycleChannel() {
	infos := m.store.Channels()
	if len(infos) == 0 {
		return
	}
	next := ""
	if m.current == "" {
		next = infos[0].Key
	} else {
		for i, info := range infos {
			if info.Key == m.current && i+1 < len(infos) {
				next = infos[i+1].Key
				break
			}
		}
	}
	m.setCurrent(next)
}

// setCurrent switches the displayed channel and resets the scroll
// position to the bottom.
func (m *model) setCurrent(key string) {
	m.current = key
	m.store.SetCurrent(key)
	m.store.SetAtBottom(true)
	m.updateViewport()
}

func (m *model) addSystemMsg(text string) {
	m.systemMsgs = append(m.systemMsgs, Message{
		Nickname:  "system",
		Content:   text,
		CreatedAt: nostr.Now(),
	})
	if len(m.systemMsgs) > m.cfg.MaxMessages {
		m.systemMsgs = m.systemMsgs[len(m.systemMsgs)-m.cfg.MaxMessages:]
	}
	m.statusMsg = text
	if m.current == "" {
		m.updateViewport()
	}
}
