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

// Package redisdb implements the persistence adapter of the durable
// object cache over the redis protocol.
package redisdb

import (
	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/infra"

	"github.com/ligato/cps-agent/pkg/confload"
)

// Plugin owns the process-wide connection pool of the durable cache.
type Plugin struct {
	Deps

	config *Config
	pool   *Pool
}

// Deps lists dependencies of the redis plugin.
type Deps struct {
	infra.PluginDeps
	// Dial overrides dialer built from config, used in tests.
	Dial DialFunc
}

// Init loads configuration and creates the connection pool.
// Connections are opened lazily.
func (p *Plugin) Init() error {
	p.config = DefaultConfig()
	found, err := confload.Load(p.Cfg, p.config)
	if err != nil {
		return errors.Wrap(err, "redis config")
	}
	if !found {
		p.Log.Debugf("redis config not found, using defaults: %+v", *p.config)
	}
	dial := p.Dial
	if dial == nil {
		dial = p.config.Dialer()
	}
	p.pool = NewPool(dial, p.config.MaxIdle, p.Log)
	p.Log.Infof("redis persistence at %s (db %d)", p.config.Endpoint, p.config.DB)
	return nil
}

// Close closes pooled connections.
func (p *Plugin) Close() error {
	if p.pool == nil {
		return nil
	}
	return p.pool.Close()
}

// Pool returns the connection pool.
func (p *Plugin) Pool() *Pool {
	return p.pool
}

// Config returns the effective configuration.
func (p *Plugin) Config() *Config {
	return p.config
}
