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
	"time"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"
	"go.ligato.io/cn-infra/v2/logging/logrus"

	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

// ErrSubscriberBroken is returned by Receive after a transport failure
// when automatic reconnection is disabled.
var ErrSubscriberBroken = errors.New("subscriber transport failed, recreate the subscriber")

// Event is one message received by a subscriber.
type Event struct {
	Key  []byte
	Seq  []byte
	Data []byte
}

type received struct {
	frames [][]byte
	err    error
}

// Subscriber receives broadcast events whose key starts with one of the
// subscribed prefixes. Prefix filtering is done by the transport.
// Receive must not be called concurrently.
type Subscriber struct {
	pool      *SocketPool
	addr      string
	reconnect bool
	log       logging.Logger

	mu       sync.Mutex
	sock     Socket
	prefixes [][]byte
	recv     chan received
	done     chan struct{}
	closed   bool
}

// SubscriberOption customizes Subscriber.
type SubscriberOption func(*Subscriber)

// WithAutoReconnect makes the subscriber recreate its socket and
// re-subscribe after a transport failure.
func WithAutoReconnect(enabled bool) SubscriberOption {
	return func(s *Subscriber) {
		s.reconnect = enabled
	}
}

// WithSubscriberLogger sets logger.
func WithSubscriberLogger(log logging.Logger) SubscriberOption {
	return func(s *Subscriber) {
		s.log = log
	}
}

// NewSubscriber connects a sub socket to the broadcast endpoint.
func NewSubscriber(pool *SocketPool, broadcastAddr string, opts ...SubscriberOption) (*Subscriber, error) {
	s := &Subscriber{
		pool: pool,
		addr: broadcastAddr,
		log:  logrus.DefaultLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// Subscribe adds key prefix filter.
func (s *Subscriber) Subscribe(prefix []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSubscriberBroken
	}
	s.prefixes = append(s.prefixes, append([]byte(nil), prefix...))
	if s.sock == nil {
		return ErrSubscriberBroken
	}
	return s.sock.Subscribe(prefix)
}

// SubscribeKey subscribes to events of objects matching key pattern k.
// An Any pattern subscribes under every concrete qualifier.
func (s *Subscriber) SubscribeKey(k key.Key) error {
	for _, c := range k.Concrete() {
		if err := s.Subscribe(c.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// Receive waits up to timeout for one event. It returns api.ErrTimeout
// when nothing arrived in time and a transport error on hard failure.
func (s *Subscriber) Receive(timeout time.Duration) (Event, error) {
	s.mu.Lock()
	recv := s.recv
	s.mu.Unlock()
	if recv == nil {
		return Event{}, ErrSubscriberBroken
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-recv:
		if r.err != nil {
			return Event{}, s.fail(r.err)
		}
		return parseEvent(r.frames)
	case <-timer.C:
		return Event{}, api.ErrTimeout
	}
}

// ReceiveObject waits for one event and decodes its payload.
func (s *Subscriber) ReceiveObject(timeout time.Duration) (*object.Object, error) {
	ev, err := s.Receive(timeout)
	if err != nil {
		return nil, err
	}
	return object.Unmarshal(ev.Data)
}

// Close releases the socket.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.shutdown()
	return nil
}

func parseEvent(frames [][]byte) (Event, error) {
	switch len(frames) {
	case 2:
		return Event{Key: frames[0], Data: frames[1]}, nil
	case 3:
		return Event{Key: frames[0], Seq: frames[1], Data: frames[2]}, nil
	}
	return Event{}, errors.Wrapf(api.ErrTransportFailure, "unexpected event with %d frames", len(frames))
}

func (s *Subscriber) fail(cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown()
	err := errors.Wrapf(api.ErrTransportFailure, "receive: %v", cause)
	if !s.reconnect || s.closed {
		return err
	}
	if rerr := s.open(); rerr != nil {
		s.log.Warnf("subscriber reconnect to %s failed: %v", s.addr, rerr)
		return err
	}
	s.log.Infof("subscriber reconnected to %s with %d subscriptions", s.addr, len(s.prefixes))
	return err
}

// open must be called with mu held.
func (s *Subscriber) open() error {
	sock, err := s.pool.Alloc(RoleSub)
	if err != nil {
		return err
	}
	if err := sock.Dial(s.addr); err != nil {
		s.pool.Release(sock)
		return errors.Wrapf(err, "connecting subscriber to %s", s.addr)
	}
	for _, p := range s.prefixes {
		if err := sock.Subscribe(p); err != nil {
			s.pool.Discard(sock)
			return errors.Wrap(err, "re-subscribing")
		}
	}
	recv := make(chan received, 64)
	done := make(chan struct{})
	go func() {
		for {
			frames, err := sock.Recv()
			select {
			case recv <- received{frames: frames, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	s.sock, s.recv, s.done = sock, recv, done
	return nil
}

// shutdown must be called with mu held.
func (s *Subscriber) shutdown() {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.sock != nil {
		s.pool.Discard(s.sock)
		s.sock = nil
	}
	s.recv = nil
}
