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

package directory

import (
	"context"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/infra"

	"github.com/ligato/cps-agent/pkg/confload"
	"github.com/ligato/cps-agent/pkg/key"
)

// Plugin provides the process directory client.
type Plugin struct {
	Deps

	config *Config
	client *Client
}

// Deps lists dependencies of the directory plugin.
type Deps struct {
	infra.PluginDeps
}

// Init loads configuration and creates the client.
func (p *Plugin) Init() error {
	p.config = DefaultConfig()
	found, err := confload.Load(p.Cfg, p.config)
	if err != nil {
		return errors.Wrap(err, "directory config")
	}
	if !found {
		p.Log.Debugf("directory config not found, using defaults: %+v", *p.config)
	}
	if p.config.Disabled {
		p.Log.Infof("directory disabled")
		return nil
	}
	p.client = NewClient(p.config)
	p.Log.Infof("directory at %s (hash %s)", p.config.Endpoint, p.config.Hash)
	return nil
}

// Close closes the client.
func (p *Plugin) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

// Disabled reports whether the directory was switched off in config.
func (p *Plugin) Disabled() bool {
	return p.config != nil && p.config.Disabled
}

// Register advertises pattern as served at address.
func (p *Plugin) Register(ctx context.Context, address string, pattern key.Key) error {
	if p.client == nil {
		return ErrDisabled
	}
	return p.client.Register(ctx, address, pattern)
}

// Ping checks the directory connection.
func (p *Plugin) Ping(ctx context.Context) error {
	if p.client == nil {
		return ErrDisabled
	}
	return p.client.Ping(ctx)
}

// Lookup returns the address serving k.
func (p *Plugin) Lookup(ctx context.Context, k key.Key) (string, error) {
	if p.client == nil {
		return "", ErrDisabled
	}
	return p.client.Lookup(ctx, k)
}

// Client returns the directory client.
func (p *Plugin) Client() *Client {
	return p.client
}
