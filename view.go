package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

func (m *model) sidebarWidth() int {
	longest := 0
	for _, info := range m.store.Channels() {
		if n := len(info.Key) + 1; n > longest {
			longest = n
		}
	}
	w := longest + sidebarPadding
	if w < minSidebarWidth {
		w = minSidebarWidth
	}
	return w
}

// renderTitleBar returns the rendered title bar for the current channel.
func (m *model) renderTitleBar() string {
	title := "status"
	if m.current != "" {
		title = "#" + m.current
	}
	return headerStyle.Render(title)
}

func (m *model) updateLayout() {
	contentWidth := m.width - m.sidebarWidth() - 1
	if contentWidth < 10 {
		contentWidth = 10
	}

	m.viewport.Width = contentWidth
	m.input.SetWidth(contentWidth)

	titleHeight := lipgloss.Height(m.renderTitleBar())
	statusHeight := lipgloss.Height(m.viewStatusBar())
	inputHeight := lipgloss.Height(m.input.View())

	contentHeight := m.height - titleHeight - statusHeight - inputHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	m.viewport.Height = contentHeight
	m.updateViewport()
}

// renderMessages converts a message slice to viewport lines, wrapping
// at word boundaries and hard-wrapping long unbroken runs like URLs.
// Inbound content is ANSI-stripped so remote users can't inject
// escape sequences into the terminal.
func (m *model) renderMessages(msgs []Message) []string {
	var lines []string
	for _, msg := range msgs {
		if msg.Nickname == "system" {
			lines = append(lines, chatSystemStyle.Render("  "+msg.Content))
			continue
		}

		content := ansi.Strip(msg.Content)
		ts := chatTimestampStyle.Render(msg.CreatedAt.Time().Format("15:04"))

		var prefix string
		if action, ok := strings.CutPrefix(content, "\x01ACTION "); ok {
			content = chatActionStyle.Render("* " + msg.Nickname + " " + strings.TrimSuffix(action, "\x01"))
			prefix = ts + " "
		} else {
			authorStyle := chatAuthorStyle
			if msg.IsMine {
				authorStyle = chatOwnAuthorStyle
			}
			prefix = fmt.Sprintf("%s %s: ", ts, authorStyle.Render(msg.Nickname))
		}

		prefixW := lipgloss.Width(prefix)
		pad := strings.Repeat(" ", prefixW)
		wrapWidth := m.viewport.Width - prefixW
		if wrapWidth < 10 {
			wrapWidth = 10
		}

		var contentLines []string
		for _, cl := range strings.Split(content, "\n") {
			wrapped := wordwrap.String(cl, wrapWidth)
			for _, wl := range strings.Split(wrapped, "\n") {
				if lipgloss.Width(wl) > wrapWidth {
					contentLines = append(contentLines, strings.Split(wrap.String(wl, wrapWidth), "\n")...)
				} else {
					contentLines = append(contentLines, wl)
				}
			}
		}
		if len(contentLines) == 0 {
			contentLines = []string{""}
		}

		lines = append(lines, prefix+contentLines[0])
		for _, cl := range contentLines[1:] {
			lines = append(lines, pad+cl)
		}
	}
	return lines
}

// setViewportContent refreshes the viewport text while preserving the
// scroll offset.
func (m *model) setViewportContent() {
	var msgs []Message
	if m.current == "" {
		msgs = m.systemMsgs
	} else {
		msgs = m.store.MessagesFor(m.current)
	}
	m.viewport.SetContent(strings.Join(m.renderMessages(msgs), "\n"))
}

// updateViewport refreshes the viewport text and jumps to the bottom.
func (m *model) updateViewport() {
	m.setViewportContent()
	m.viewport.GotoBottom()
	m.store.SetAtBottom(true)
}

func (m *model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.qrOverlay != "" {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.qrOverlay)
	}

	title := m.renderTitleBar()
	sidebar := m.viewSidebar()
	statusBar := m.viewStatusBar()

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.viewport.View(), m.input.View())
	mainArea := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)

	return lipgloss.JoinVertical(lipgloss.Left, mainArea, statusBar)
}

func (m *model) viewSidebar() string {
	contentHeight := m.height - lipgloss.Height(m.viewStatusBar())
	sw := m.sidebarWidth()

	items := []string{headerStyle.Render("CHANNELS")}
	for _, info := range m.store.Channels() {
		label := "#" + info.Key
		style := sidebarItemStyle
		if !info.Joined {
			style = sidebarListeningStyle
		}
		if info.Key == m.current {
			style = sidebarSelectedStyle
		}
		items = append(items, style.Width(sw).Render(label))
	}

	body := strings.Join(items, "\n")
	return sidebarStyle.Width(sw).Height(contentHeight).Render(body)
}

// viewStatusBar shows nick, relay health and the last status line.
func (m *model) viewStatusBar() string {
	connected := m.pool.ConnectedCount()
	relayState := fmt.Sprintf("%d/%d relays", connected, len(m.cfg.Relays))
	if connected > 0 {
		relayState = statusConnectedStyle.Render(relayState)
	} else {
		relayState = statusDownStyle.Render(relayState)
	}

	left := fmt.Sprintf("%s | %s", m.identity.Nickname, relayState)
	if m.statusMsg != "" {
		left += " | " + m.statusMsg
	}
	return statusBarStyle.Width(m.width).Render(left)
}
