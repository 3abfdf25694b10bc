//  Copyright (c) 2020 Cisco and/or its affiliates.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at:
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package ipc implements the request acceptor: a framed byte-stream
// protocol carrying GET, COMMIT, REVERT and STATS requests, its server
// and its client.
package ipc

import (
	"context"
	"net"
	"os"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/infra"

	"github.com/ligato/cps-agent/pkg/confload"
	"github.com/ligato/cps-agent/plugins/operation"
)

// Plugin serves requests of the operation service.
type Plugin struct {
	Deps

	config   *Config
	listener net.Listener
	server   *Server
	cancel   context.CancelFunc
	done     chan struct{}
}

// Deps lists dependencies of the ipc plugin.
type Deps struct {
	infra.PluginDeps
	Operation ServiceProvider
}

// ServiceProvider provides the operation service.
type ServiceProvider interface {
	Service() *operation.Service
}

// Init binds the listener. A bind failure fails the agent start.
func (p *Plugin) Init() (err error) {
	p.config = DefaultConfig()
	if _, err = confload.Load(p.Cfg, p.config); err != nil {
		return errors.Wrap(err, "ipc config")
	}
	if p.Operation == nil {
		return errors.New("ipc requires the operation service")
	}

	if p.config.Network == "unix" {
		if err := os.Remove(p.config.Address); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing stale socket %s", p.config.Address)
		}
	}
	p.listener, err = net.Listen(p.config.Network, p.config.Address)
	if err != nil {
		return errors.Wrapf(err, "listen %s", JoinAddress(p.config.Network, p.config.Address))
	}
	p.server = NewServer(p.Operation.Service(), p.config.Workers, p.Log)
	return nil
}

// AfterInit starts accepting connections.
func (p *Plugin) AfterInit() error {
	var ctx context.Context
	ctx, p.cancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		if err := p.server.Serve(ctx, p.listener); err != nil {
			p.Log.Errorf("request acceptor stopped: %v", err)
		}
	}()
	p.Log.Infof("serving requests at %s with %d workers", p.Address(), p.config.Workers)
	return nil
}

// Close stops the server.
func (p *Plugin) Close() error {
	if p.cancel != nil {
		p.cancel()
		<-p.done
		return nil
	}
	if p.listener != nil {
		return p.listener.Close()
	}
	return nil
}

// Address returns the bound address as "network://address".
func (p *Plugin) Address() string {
	if p.listener != nil {
		return JoinAddress(p.listener.Addr().Network(), p.listener.Addr().String())
	}
	cfg := p.config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return JoinAddress(cfg.Network, cfg.Address)
}
