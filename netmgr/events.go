//
// Created on 2023/5/16 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package netmgr

import (
	"time"

	"github.com/ethereum/go-ethereum/event"
)

type EventType string

const (
	NetworkCreated   EventType = "network.created"
	NetworkDestroyed EventType = "network.destroyed"
)

// Event is broadcast on every network lifecycle transition.
type Event struct {
	Type EventType
	ID   string
	Name string
	Port int
	Time time.Time
}

// SubscribeEvents registers a sink for network lifecycle events. The
// subscription is tracked by the manager and closed on shutdown.
func (m *NetworkManager) SubscribeEvents(ch chan<- Event) event.Subscription {
	return m.scope.Track(m.feed.Subscribe(ch))
}
