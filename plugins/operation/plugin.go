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

// Package operation implements the operation service: the registration
// table, the router dispatching GET/COMMIT/REVERT/STATS to handlers, the
// background reconciler and directory upkeep.
package operation

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/infra"

	"github.com/ligato/cps-agent/pkg/confload"
	"github.com/ligato/cps-agent/pkg/metrics"
	"github.com/ligato/cps-agent/plugins/events"
	"github.com/ligato/cps-agent/plugins/redisdb"
)

// Plugin owns the process operation service.
type Plugin struct {
	Deps

	config  *Config
	service *Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Deps lists dependencies of the operation plugin.
type Deps struct {
	infra.PluginDeps
	Redis     StoreProvider     // optional
	Events    PublisherProvider // optional
	Directory Directory         // optional
	// AdvertiseAddress returns address announced to the directory.
	AdvertiseAddress func() string
}

// StoreProvider provides the durable cache pool once initialized.
type StoreProvider interface {
	Pool() *redisdb.Pool
}

// PublisherProvider provides the process event publisher.
type PublisherProvider interface {
	Publisher() *events.Publisher
}

// Init loads configuration and creates the service.
func (p *Plugin) Init() error {
	p.config = DefaultConfig()
	found, err := confload.Load(p.Cfg, p.config)
	if err != nil {
		return errors.Wrap(err, "operation config")
	}
	if !found {
		p.Log.Debugf("operation config not found, using defaults: %+v", *p.config)
	}

	opts := []ServiceOption{
		WithLogger(p.Log),
		WithSkipUnchanged(p.config.SkipUnchanged),
	}
	if p.Redis != nil {
		if pool := p.Redis.Pool(); pool != nil {
			opts = append(opts, WithStore(pool))
		}
	}
	if p.Events != nil {
		if pub := p.Events.Publisher(); pub != nil {
			opts = append(opts, WithPublisher(pub))
		}
	}
	p.service = NewService(opts...)

	metrics.Register(p.String(), func() interface{} {
		return p.service.StatsSnapshot()
	})
	return nil
}

// AfterInit starts the reconciler and the directory upkeep.
func (p *Plugin) AfterInit() error {
	var ctx context.Context
	ctx, p.cancel = context.WithCancel(context.Background())

	if p.config.ReconcileInterval > 0 {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.service.RunReconciler(ctx, p.config.ReconcileInterval)
		}()
		p.Log.Infof("reconciler running every %v", p.config.ReconcileInterval)
	}

	if p.Directory != nil && !directoryDisabled(p.Directory) {
		var addr string
		if p.AdvertiseAddress != nil {
			addr = p.AdvertiseAddress()
		}
		p.service.SetDirectory(p.Directory, addr)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.service.RunDirectory(ctx, p.config.DirectoryRetry)
		}()
	}
	return nil
}

// directoryDisabled reports whether dir was switched off by its config.
func directoryDisabled(dir Directory) bool {
	d, ok := dir.(interface{ Disabled() bool })
	return ok && d.Disabled()
}

// Close stops background workers.
func (p *Plugin) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	metrics.Unregister(p.String())
	return nil
}

// Service returns the operation service.
func (p *Plugin) Service() *Service {
	return p.service
}
