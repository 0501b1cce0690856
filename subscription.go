package main

import (
	"log"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// subscriptionController turns the set of joined channel keys into
// the relay-level filter and pushes it to the pool. The filter is
// replaceable: re-issuing it (on join, leave or reconnect) never
// duplicates subscriptions at a relay.
type subscriptionController struct {
	pool     *RelayPool
	lookback time.Duration
	limit    int
}

func newSubscriptionController(pool *RelayPool, lookback time.Duration, limit int) *subscriptionController {
	if lookback <= 0 {
		lookback = defaultLookback
	}
	if limit <= 0 {
		limit = defaultSubscriptionLimit
	}
	return &subscriptionController{pool: pool, lookback: lookback, limit: limit}
}

// Sync replaces the active filters to cover exactly the given joined
// channel keys. With nothing joined, the subscription is dropped.
func (sc *subscriptionController) Sync(joined []string) {
	if len(joined) == 0 {
		log.Printf("subscriptions: no joined channels, clearing filters")
		sc.pool.UpdateFilters(nil)
		return
	}

	since := nostr.Timestamp(time.Now().Add(-sc.lookback).Unix())
	filter := nostr.Filter{
		Kinds: []int{chatEventKind},
		Tags:  nostr.TagMap{"g": joined},
		Since: &since,
		Limit: sc.limit,
	}
	log.Printf("subscriptions: syncing %d channels", len(joined))
	sc.pool.UpdateFilters(nostr.Filters{filter})
}
