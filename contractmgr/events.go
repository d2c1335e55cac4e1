//
// Created on 2023/5/24 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package contractmgr

import (
	"time"

	"github.com/ethereum/go-ethereum/event"
)

// DeploymentEvent is broadcast on every deployment status transition.
type DeploymentEvent struct {
	DeploymentID string
	ContractName string
	NetworkID    string
	Status       DeploymentStatus
	Error        string
	Time         time.Time
}

// SubscribeEvents registers a sink for deployment status events. The
// subscription is tracked by the manager and closed on shutdown.
func (m *ContractManager) SubscribeEvents(ch chan<- DeploymentEvent) event.Subscription {
	return m.scope.Track(m.feed.Subscribe(ch))
}
