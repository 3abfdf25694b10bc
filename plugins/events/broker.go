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

package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"
	"go.ligato.io/cn-infra/v2/logging/logrus"

	"github.com/ligato/cps-agent/plugins/operation/api"
)

const (
	// DefaultPollTimeout is the period of retrying channels that are down.
	DefaultPollTimeout = 500 * time.Millisecond
	// DefaultMaxRetry bounds relay attempts of one message.
	DefaultMaxRetry = 10
)

var listenRoles = [numChannels]Role{
	RequestChannel:   RoleRouter,
	BroadcastChannel: RolePub,
	IngestionChannel: RolePull,
}

type inbound struct {
	ch     Channel
	gen    int64
	frames [][]byte
	err    error
}

// BrokerStats counts broker activity.
type BrokerStats struct {
	Relayed   uint64
	Dropped   uint64
	Recovered uint64
}

// Broker relays every message pushed to the ingestion channel onto the
// broadcast channel. All three sockets are served by one loop; sockets
// hitting a fault are replaced without restarting the broker.
type Broker struct {
	addrs       Addresses
	pool        *SocketPool
	log         logging.Logger
	pollTimeout time.Duration
	maxRetry    int

	sockets [numChannels]Socket
	gens    [numChannels]atomic.Int64

	inbox    chan inbound
	quit     chan struct{}
	loopDone chan struct{}
	started  bool
	wg       sync.WaitGroup

	relayed   atomic.Uint64
	dropped   atomic.Uint64
	recovered atomic.Uint64
}

// BrokerOption customizes Broker.
type BrokerOption func(*Broker)

// WithPollTimeout sets the period of retrying channels that are down.
func WithPollTimeout(d time.Duration) BrokerOption {
	return func(b *Broker) {
		if d > 0 {
			b.pollTimeout = d
		}
	}
}

// WithMaxRetry sets number of relay attempts of one message.
func WithMaxRetry(n int) BrokerOption {
	return func(b *Broker) {
		if n > 0 {
			b.maxRetry = n
		}
	}
}

// WithBrokerLogger sets logger.
func WithBrokerLogger(log logging.Logger) BrokerOption {
	return func(b *Broker) {
		b.log = log
	}
}

// NewBroker returns broker serving addrs with sockets from pool.
func NewBroker(addrs Addresses, pool *SocketPool, opts ...BrokerOption) *Broker {
	b := &Broker{
		addrs:       addrs,
		pool:        pool,
		log:         logrus.DefaultLogger(),
		pollTimeout: DefaultPollTimeout,
		maxRetry:    DefaultMaxRetry,
		inbox:       make(chan inbound, 64),
		quit:        make(chan struct{}),
		loopDone:    make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Start binds all channels and starts the relay loop. A bind failure is
// returned and leaves nothing running.
func (b *Broker) Start() error {
	for ch := Channel(0); ch < numChannels; ch++ {
		s, err := b.pool.Alloc(listenRoles[ch])
		if err == nil {
			err = s.Listen(b.addrs.Of(ch))
			if err != nil {
				b.pool.Discard(s)
			}
		}
		if err != nil {
			b.closeSockets()
			return errors.Wrapf(err, "binding %s channel at %s", ch, b.addrs.Of(ch))
		}
		b.sockets[ch] = s
		b.log.Debugf("%s channel listening at %s", ch, b.addrs.Of(ch))
	}
	for ch := Channel(0); ch < numChannels; ch++ {
		if ch != BroadcastChannel {
			b.startReader(ch)
		}
	}
	b.started = true
	go b.loop()
	return nil
}

// Stop terminates the loop and closes broker sockets.
func (b *Broker) Stop() {
	if !b.started {
		return
	}
	select {
	case <-b.quit:
		return
	default:
	}
	close(b.quit)
	<-b.loopDone
	b.closeSockets()
	b.wg.Wait()
}

// Stats returns broker counters.
func (b *Broker) Stats() BrokerStats {
	return BrokerStats{
		Relayed:   b.relayed.Load(),
		Dropped:   b.dropped.Load(),
		Recovered: b.recovered.Load(),
	}
}

func (b *Broker) closeSockets() {
	for ch := Channel(0); ch < numChannels; ch++ {
		if s := b.sockets[ch]; s != nil {
			b.gens[ch].Add(1)
			b.pool.Discard(s)
		}
	}
}

func (b *Broker) startReader(ch Channel) {
	s := b.sockets[ch]
	gen := b.gens[ch].Load()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			frames, err := s.Recv()
			if b.gens[ch].Load() != gen {
				// socket replaced or broker stopping
				return
			}
			select {
			case b.inbox <- inbound{ch: ch, gen: gen, frames: frames, err: err}:
			case <-b.quit:
				return
			}
			if err != nil {
				return
			}
		}
	}()
}

func (b *Broker) loop() {
	defer close(b.loopDone)
	ticker := time.NewTicker(b.pollTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-b.quit:
			return
		case in := <-b.inbox:
			b.handle(in)
		case <-ticker.C:
			b.reviveChannels()
		}
	}
}

// reviveChannels retries channels left without a socket by a failed
// recovery. Without it a dead ingestion channel would never be read again.
func (b *Broker) reviveChannels() {
	for ch := Channel(0); ch < numChannels; ch++ {
		if b.sockets[ch] != nil {
			continue
		}
		if err := b.recover(ch); err != nil {
			b.log.Debugf("%s channel still down: %v", ch, err)
		}
	}
}

func (b *Broker) handle(in inbound) {
	if in.gen != b.gens[in.ch].Load() {
		return
	}
	if in.err != nil {
		b.log.Warnf("receive on %s channel failed: %v", in.ch, in.err)
		if err := b.recover(in.ch); err != nil {
			b.log.Errorf("recovery of %s channel failed: %v", in.ch, err)
		}
		return
	}
	switch in.ch {
	case IngestionChannel:
		if err := b.relay(in.frames); err != nil {
			b.dropped.Add(1)
			b.log.Errorf("event dropped: %v", err)
		}
	case RequestChannel:
		// reserved
	}
}

// relay forwards frames on the broadcast channel unchanged. Forwarding is
// idempotent so a failed attempt is retried on a fresh socket.
func (b *Broker) relay(frames [][]byte) error {
	var err error
	for attempt := 1; attempt <= b.maxRetry; attempt++ {
		s := b.sockets[BroadcastChannel]
		if s == nil {
			err = errors.New("no broadcast socket")
		} else if err = s.Send(frames); err == nil {
			b.relayed.Add(1)
			return nil
		}
		b.log.Warnf("relay attempt %d/%d failed: %v", attempt, b.maxRetry, err)
		if rerr := b.recover(BroadcastChannel); rerr != nil {
			err = rerr
		}
	}
	return errors.Wrapf(api.ErrTransportFailure, "relay failed after %d attempts: %v", b.maxRetry, err)
}

// recover replaces socket of channel ch, leaving other channels intact.
func (b *Broker) recover(ch Channel) error {
	if old := b.sockets[ch]; old != nil {
		b.gens[ch].Add(1)
		b.sockets[ch] = nil
		b.pool.Discard(old)
	}
	s, err := b.pool.Alloc(listenRoles[ch])
	if err != nil {
		return err
	}
	if err := s.Listen(b.addrs.Of(ch)); err != nil {
		b.pool.Discard(s)
		return errors.Wrapf(err, "rebinding %s channel", ch)
	}
	b.sockets[ch] = s
	b.recovered.Add(1)
	if ch != BroadcastChannel {
		b.startReader(ch)
	}
	b.log.Infof("%s channel re-initialized at %s", ch, b.addrs.Of(ch))
	return nil
}
