package main

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// ErrNoRelaysAvailable is an advisory, not a failure: the local echo
// of a sent message proceeds regardless.
var ErrNoRelaysAvailable = errors.New("no relays available")

// ConnState is the lifecycle state of one relay connection.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateBackoff
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	default:
		return "disconnected"
	}
}

// RelayStatus is the read-only connection snapshot handed to the UI.
type RelayStatus struct {
	URL       string
	State     ConnState
	LastError error
}

const (
	minBackoff   = time.Second
	maxBackoff   = 2 * time.Minute
	healthyReset = 30 * time.Second

	publishTimeout = 5 * time.Second

	// Pause before re-subscribing after the relay closed our
	// subscription (CLOSED while the transport stayed up).
	resubscribeDelay = time.Second
)

// relayConn is one managed connection. Its goroutine owns connect,
// subscribe, read and backoff for its endpoint.
type relayConn struct {
	url string

	mu      sync.Mutex
	state   ConnState
	lastErr error
	relay   *nostr.Relay

	// Pinged when the active filter set changes so the connection
	// replaces its subscription. Buffered; a pending ping is enough.
	refresh chan struct{}
}

func (c *relayConn) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *relayConn) setError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *relayConn) setRelay(r *nostr.Relay) {
	c.mu.Lock()
	c.relay = r
	c.mu.Unlock()
}

// connectedRelay returns the live relay handle, or nil unless the
// connection is currently in StateConnected.
func (c *relayConn) connectedRelay() *nostr.Relay {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return nil
	}
	return c.relay
}

func (c *relayConn) status() RelayStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return RelayStatus{URL: c.url, State: c.state, LastError: c.lastErr}
}

// RelayPool maintains one independent connection per configured
// endpoint, merges their inbound event streams into a single channel
// and fans published events out to every healthy connection.
type RelayPool struct {
	ctx    context.Context
	cancel context.CancelFunc
	conns  []*relayConn
	events chan *nostr.Event
	wg     sync.WaitGroup

	filtersMu sync.Mutex
	filters   nostr.Filters
}

func newRelayPool(urls []string) *RelayPool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &RelayPool{
		ctx:    ctx,
		cancel: cancel,
		events: make(chan *nostr.Event, 64),
	}
	for _, url := range urls {
		p.conns = append(p.conns, &relayConn{url: url, refresh: make(chan struct{}, 1)})
	}
	return p
}

// Start launches one manager goroutine per endpoint.
func (p *RelayPool) Start() {
	for _, c := range p.conns {
		p.wg.Add(1)
		go p.manage(c)
	}
}

// Events is the merged inbound stream of raw events from all relays.
func (p *RelayPool) Events() <-chan *nostr.Event {
	return p.events
}

// Publish fans the signed event out to every connected relay,
// fire-and-forget with an independent timeout per relay. A single
// relay rejecting the event does not affect the others. With zero
// connected relays it returns the ErrNoRelaysAvailable advisory.
func (p *RelayPool) Publish(evt nostr.Event) error {
	published := 0
	for _, c := range p.conns {
		relay := c.connectedRelay()
		if relay == nil {
			continue
		}
		published++
		go func(c *relayConn, relay *nostr.Relay) {
			ctx, cancel := context.WithTimeout(p.ctx, publishTimeout)
			defer cancel()
			if err := relay.Publish(ctx, evt); err != nil {
				log.Printf("publish: %s rejected %s: %v", c.url, shortPK(evt.ID), err)
			}
		}(c, relay)
	}
	if published == 0 {
		return ErrNoRelaysAvailable
	}
	log.Printf("publish: %s fanned out to %d relays", shortPK(evt.ID), published)
	return nil
}

// UpdateFilters replaces the active subscription filters and pings
// every connection to re-issue them. Connections currently down pick
// the new filters up when they reconnect.
func (p *RelayPool) UpdateFilters(filters nostr.Filters) {
	p.filtersMu.Lock()
	p.filters = filters
	p.filtersMu.Unlock()
	for _, c := range p.conns {
		select {
		case c.refresh <- struct{}{}:
		default:
		}
	}
}

func (p *RelayPool) currentFilters() nostr.Filters {
	p.filtersMu.Lock()
	defer p.filtersMu.Unlock()
	return p.filters
}

// Statuses returns a snapshot of every connection's state.
func (p *RelayPool) Statuses() []RelayStatus {
	out := make([]RelayStatus, 0, len(p.conns))
	for _, c := range p.conns {
		out = append(out, c.status())
	}
	return out
}

// ConnectedCount returns how many relays are currently connected.
func (p *RelayPool) ConnectedCount() int {
	n := 0
	for _, c := range p.conns {
		if c.status().State == StateConnected {
			n++
		}
	}
	return n
}

// Close signals every connection to stop and waits for the managers
// to finish. In-flight publishes are abandoned.
func (p *RelayPool) Close() {
	p.cancel()
	p.wg.Wait()
}

// manage runs the connect/serve/backoff loop for one endpoint until
// the pool shuts down. The backoff delay doubles up to a cap and
// resets to the minimum after a sustained connected period.
func (p *RelayPool) manage(c *relayConn) {
	defer p.wg.Done()
	backoff := minBackoff

	for {
		c.setState(StateConnecting)
		log.Printf("relay %s: connecting", c.url)
		relay, err := nostr.RelayConnect(p.ctx, c.url)
		if err != nil {
			if p.ctx.Err() != nil {
				c.setState(StateDisconnected)
				return
			}
			log.Printf("relay %s: connect failed: %v", c.url, err)
			c.setError(err)
			c.setState(StateBackoff)
			if !p.sleep(backoff) {
				c.setState(StateDisconnected)
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		log.Printf("relay %s: connected", c.url)
		c.setRelay(relay)
		c.setError(nil)
		c.setState(StateConnected)
		connectedAt := time.Now()

		p.serve(c, relay)

		c.setRelay(nil)
		relay.Close()
		if p.ctx.Err() != nil {
			c.setState(StateDisconnected)
			return
		}
		if time.Since(connectedAt) >= healthyReset {
			backoff = minBackoff
		}
		log.Printf("relay %s: transport lost, retrying in %s", c.url, backoff)
		c.setState(StateBackoff)
		if !p.sleep(backoff) {
			c.setState(StateDisconnected)
			return
		}
		backoff = nextBackoff(backoff)
	}
}

// serve pumps events from one connected relay into the merged stream,
// replacing the subscription whenever the filter set changes. It
// returns when the transport dies or the pool shuts down. Relays keep
// no subscription state for us across disconnects, so each (re)entry
// starts from the current filter set.
func (p *RelayPool) serve(c *relayConn, relay *nostr.Relay) {
	for {
		filters := p.currentFilters()

		var sub *nostr.Subscription
		var events <-chan *nostr.Event
		if len(filters) > 0 {
			var err error
			sub, err = relay.Subscribe(p.ctx, filters)
			if err != nil {
				log.Printf("relay %s: subscribe failed: %v", c.url, err)
				c.setError(err)
				return
			}
			events = sub.Events
		}

	pump:
		for {
			select {
			case <-p.ctx.Done():
				if sub != nil {
					sub.Unsub()
				}
				return

			case <-relay.Context().Done():
				if err := relay.ConnectionError; err != nil {
					c.setError(err)
				}
				return

			case <-c.refresh:
				if sub != nil {
					sub.Unsub()
				}
				break pump

			case evt, ok := <-events:
				if !ok {
					// The relay closed the subscription (CLOSED, e.g.
					// rate limiting) while the transport stayed up.
					// Pause, then re-subscribe with the current
					// filters so the feed comes back on its own.
					log.Printf("relay %s: subscription closed by relay, re-subscribing", c.url)
					if !p.sleep(resubscribeDelay) {
						return
					}
					break pump
				}
				select {
				case p.events <- evt:
				case <-p.ctx.Done():
					sub.Unsub()
					return
				}
			}
		}
	}
}

// sleep waits for d or until shutdown; false means shutdown.
func (p *RelayPool) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-p.ctx.Done():
		return false
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
