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

	"github.com/pkg/errors"

	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

// Publisher pushes events to the broker ingestion channel. It does not
// retry, delivery recovery is left to the broker.
type Publisher struct {
	pool *SocketPool

	mu   sync.Mutex
	sock Socket
}

// NewPublisher connects a push socket to the ingestion endpoint.
func NewPublisher(pool *SocketPool, ingestionAddr string) (*Publisher, error) {
	s, err := pool.Alloc(RolePush)
	if err != nil {
		return nil, err
	}
	if err := s.Dial(ingestionAddr); err != nil {
		pool.Release(s)
		return nil, errors.Wrapf(err, "connecting publisher to %s", ingestionAddr)
	}
	return &Publisher{pool: pool, sock: s}, nil
}

// Publish sends one two-frame message: key and payload.
func (p *Publisher) Publish(key, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sock == nil {
		return errors.Wrap(api.ErrTransportFailure, "publisher closed")
	}
	if err := p.sock.Send([][]byte{key, data}); err != nil {
		return errors.Wrapf(api.ErrTransportFailure, "publish: %v", err)
	}
	return nil
}

// PublishObject publishes object keyed by its encoded key so subscribers
// filtering on a key pattern receive it.
func (p *Publisher) PublishObject(o *object.Object) error {
	return p.Publish(o.Key().Bytes(), o.Marshal())
}

// Close releases the socket.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sock != nil {
		p.pool.Release(p.sock)
		p.sock = nil
	}
	return nil
}
