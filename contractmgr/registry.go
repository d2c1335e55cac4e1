//
// Created on 2023/5/24 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package contractmgr

import (
	"sort"
	"sync"
)

// ListFilter narrows ListDeployments output. Zero values match everything.
type ListFilter struct {
	NetworkID    string
	ContractName string
	Status       DeploymentStatus
}

// deploymentRegistry is the in-memory deployment store. Mutation goes
// through update so the status machine is enforced under the lock; readers
// only ever see snapshots.
type deploymentRegistry struct {
	deployments map[string]*Deployment
	mtx         sync.RWMutex
}

func newDeploymentRegistry() *deploymentRegistry {
	return &deploymentRegistry{deployments: make(map[string]*Deployment)}
}

func (r *deploymentRegistry) add(deployment *Deployment) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.deployments[deployment.ID] = deployment
}

func (r *deploymentRegistry) get(id string) (*Deployment, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	deployment, ok := r.deployments[id]
	if !ok {
		return nil, ErrDeploymentNotFound
	}
	return deployment.snapshot(), nil
}

// update applies fn to the live record under the registry lock and returns
// a snapshot of the result.
func (r *deploymentRegistry) update(id string, fn func(*Deployment) error) (*Deployment, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	deployment, ok := r.deployments[id]
	if !ok {
		return nil, ErrDeploymentNotFound
	}
	if err := fn(deployment); err != nil {
		return nil, err
	}
	return deployment.snapshot(), nil
}

func (r *deploymentRegistry) list(filter ListFilter) []*Deployment {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	matches := make([]*Deployment, 0, len(r.deployments))
	for _, deployment := range r.deployments {
		if filter.NetworkID != "" && deployment.NetworkID != filter.NetworkID {
			continue
		}
		if filter.ContractName != "" && deployment.ContractName != filter.ContractName {
			continue
		}
		if filter.Status != "" && deployment.Status != filter.Status {
			continue
		}
		matches = append(matches, deployment.snapshot())
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches
}

func (r *deploymentRegistry) clear() {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.deployments = make(map[string]*Deployment)
}
