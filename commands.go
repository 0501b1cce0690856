package main

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// geohashAlphabet is the base32 charset geohashes are built from.
const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// isValidGeohash reports whether s is a syntactically valid geohash.
// Any length >= 1 is allowed; shorter just means a coarser area.
func isValidGeohash(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune(geohashAlphabet, c) {
			return false
		}
	}
	return true
}

// handleCommand dispatches a /slash command typed into the input.
func (m *model) handleCommand(text string) (tea.Model, tea.Cmd) {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	cmd := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/join", "/j":
		return m.joinChannel(arg)

	case "/leave", "/part":
		key := arg
		if key == "" {
			key = m.current
		}
		return m.leaveChannel(key)

	case "/nick":
		if arg == "" {
			m.addSystemMsg("usage: /nick <name>")
			return m, nil
		}
		old := m.identity.Nickname
		m.identity.SetNickname(arg)
		m.addSystemMsg(fmt.Sprintf("nickname changed: %s -> %s", old, arg))
		return m, nil

	case "/msg":
		msgParts := strings.SplitN(arg, " ", 2)
		if len(msgParts) < 2 {
			m.addSystemMsg("usage: /msg <geohash> <message>")
			return m, nil
		}
		return m.sendTo(strings.TrimPrefix(msgParts[0], "#"), msgParts[1])

	case "/me":
		if arg == "" {
			m.addSystemMsg("usage: /me <action>")
			return m, nil
		}
		return m.sendTo(m.current, "\x01ACTION "+arg+"\x01")

	case "/channels", "/list":
		m.listChannels()
		return m, nil

	case "/whoami":
		m.qrOverlay = renderQR("your npub", m.identity.NPub)
		m.addSystemMsg(fmt.Sprintf("you are %s (%s)", m.identity.Nickname, m.identity.NPub))
		return m, nil

	case "/clear":
		m.systemMsgs = nil
		m.updateViewport()
		return m, nil

	case "/help":
		m.showHelp()
		return m, nil

	case "/quit", "/q":
		return m, tea.Quit

	default:
		m.addSystemMsg("unknown command: " + cmd + " (try /help)")
		return m, nil
	}
}

func (m *model) joinChannel(arg string) (tea.Model, tea.Cmd) {
	key := strings.TrimPrefix(strings.ToLower(arg), "#")
	if !isValidGeohash(key) {
		m.addSystemMsg("invalid geohash: " + arg)
		return m, nil
	}

	m.store.Join(key)
	m.subs.Sync(m.store.Joined())
	m.setCurrent(key)
	m.addSystemMsg("joined #" + key)
	return m, nil
}

func (m *model) leaveChannel(key string) (tea.Model, tea.Cmd) {
	if key == "" {
		m.addSystemMsg("not in a channel")
		return m, nil
	}
	m.store.Leave(key)
	m.subs.Sync(m.store.Joined())
	m.addSystemMsg("left #" + key)
	if m.current == key {
		next := ""
		if joined := m.store.Joined(); len(joined) > 0 {
			next = joined[0]
		}
		m.setCurrent(next)
	}
	return m, nil
}

// sendTo sends a message to the given channel with unconditional
// local echo. NoRelaysAvailable is surfaced as an advisory only; the
// message is already in the sender's own view.
func (m *model) sendTo(key, body string) (tea.Model, tea.Cmd) {
	if key == "" {
		m.addSystemMsg("not in a channel, /join one first")
		return m, nil
	}
	if !m.store.IsJoined(key) {
		m.store.Join(key)
		m.subs.Sync(m.store.Joined())
	}

	_, err := m.store.Send(key, body)
	if errors.Is(err, ErrNoRelaysAvailable) {
		m.addSystemMsg("no relays connected, message queued locally only")
	} else if err != nil {
		m.addSystemMsg("send failed: " + err.Error())
	}
	m.updateViewport()
	return m, nil
}

func (m *model) listChannels() {
	infos := m.store.Channels()
	if len(infos) == 0 {
		m.addSystemMsg("no channels yet, /join a geohash")
		return
	}
	for _, info := range infos {
		marker := "listening"
		if info.Joined {
			marker = "joined"
		}
		m.addSystemMsg(fmt.Sprintf("#%s  %d messages  (%s)", info.Key, info.MessageCount, marker))
	}
}

func (m *model) showHelp() {
	for _, line := range []string{
		"/join <geohash>      join a channel",
		"/leave [geohash]     leave the current (or named) channel",
		"/msg <geohash> <txt> send to a specific channel",
		"/me <action>         send an action message",
		"/nick <name>         change display name",
		"/channels            list known channels",
		"/whoami              show identity and npub QR",
		"/clear               clear status messages",
		"/quit                exit",
	} {
		m.addSystemMsg(line)
	}
}
