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

// Package events implements the publish/subscribe event service: a broker
// relaying pushed events to subscribers, publishers and subscribers.
package events

import (
	"context"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/infra"

	"github.com/ligato/cps-agent/pkg/confload"
)

// Plugin runs the event broker and provides publishers and subscribers.
type Plugin struct {
	Deps

	config *Config
	addrs  Addresses
	cancel context.CancelFunc
	pool   *SocketPool
	broker *Broker
	pub    *Publisher
}

// Deps lists dependencies of the events plugin.
type Deps struct {
	infra.PluginDeps
	// Factory overrides the zmq socket factory.
	Factory Factory
}

// Init loads config, starts the broker if enabled and connects the
// process publisher.
func (p *Plugin) Init() (err error) {
	p.config = DefaultConfig()
	if _, err = confload.Load(p.Cfg, p.config); err != nil {
		return errors.Wrap(err, "events config")
	}
	if p.addrs, err = ExpandAddress(p.config.Address); err != nil {
		return err
	}

	factory := p.Factory
	if factory == nil {
		var ctx context.Context
		ctx, p.cancel = context.WithCancel(context.Background())
		factory = NewZMQFactory(ctx)
	}
	p.pool = NewSocketPool(factory)

	if p.config.Broker {
		p.broker = NewBroker(p.addrs, p.pool,
			WithPollTimeout(p.config.PollTimeout),
			WithMaxRetry(p.config.MaxRetry),
			WithBrokerLogger(p.Log.NewLogger("broker")),
		)
		if err = p.broker.Start(); err != nil {
			return err
		}
		p.Log.Infof("event broker serving %v", p.addrs)
	}

	if p.pub, err = NewPublisher(p.pool, p.addrs.Of(IngestionChannel)); err != nil {
		return err
	}
	return nil
}

// Close stops the broker and releases all sockets.
func (p *Plugin) Close() error {
	if p.pub != nil {
		p.pub.Close()
	}
	if p.broker != nil {
		p.broker.Stop()
	}
	if p.pool != nil {
		p.pool.Close()
	}
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

// Publisher returns the process publisher.
func (p *Plugin) Publisher() *Publisher {
	return p.pub
}

// NewSubscriber connects a new subscriber to the broadcast channel.
func (p *Plugin) NewSubscriber() (*Subscriber, error) {
	return NewSubscriber(p.pool, p.addrs.Of(BroadcastChannel),
		WithAutoReconnect(p.config.SubscriberReconnect),
		WithSubscriberLogger(p.Log.NewLogger("subscriber")),
	)
}

// Addresses returns channel endpoints.
func (p *Plugin) Addresses() Addresses {
	return p.addrs
}

// BrokerStats returns broker counters, zero if the broker is not local.
func (p *Plugin) BrokerStats() BrokerStats {
	if p.broker == nil {
		return BrokerStats{}
	}
	return p.broker.Stats()
}
