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
)

// ErrPoolClosed is returned by Alloc after Close.
var ErrPoolClosed = errors.New("socket pool is closed")

// SocketPool is an arena of sockets with a free list per role. Unattached
// sockets given back with Release are reused by the next Alloc of the
// same role; attached ones and discarded ones are closed right away.
type SocketPool struct {
	factory Factory

	mu     sync.Mutex
	free   map[Role][]Socket
	live   map[Socket]struct{}
	closed bool
}

// NewSocketPool returns empty pool creating sockets with factory.
func NewSocketPool(factory Factory) *SocketPool {
	return &SocketPool{
		factory: factory,
		free:    make(map[Role][]Socket),
		live:    make(map[Socket]struct{}),
	}
}

// Alloc returns a free socket of role, creating one if none is free.
func (p *SocketPool) Alloc(role Role) (Socket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	if list := p.free[role]; len(list) > 0 {
		s := list[len(list)-1]
		p.free[role] = list[:len(list)-1]
		p.live[s] = struct{}{}
		return s, nil
	}
	s, err := p.factory.NewSocket(role)
	if err != nil {
		return nil, errors.Wrapf(err, "allocating %s socket", role)
	}
	p.live[s] = struct{}{}
	return s, nil
}

// Release gives the socket back to the pool.
func (p *SocketPool) Release(s Socket) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.live[s]; !ok {
		return
	}
	delete(p.live, s)
	if p.closed || s.Endpoint() != "" {
		s.Close()
		return
	}
	p.free[s.Role()] = append(p.free[s.Role()], s)
}

// Discard closes a faulty socket.
func (p *SocketPool) Discard(s Socket) {
	p.mu.Lock()
	delete(p.live, s)
	p.mu.Unlock()
	s.Close()
}

// Stats returns number of sockets in use and on free lists.
func (p *SocketPool) Stats() (live, free int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, list := range p.free {
		free += len(list)
	}
	return len(p.live), free
}

// Close closes every socket owned by the pool.
func (p *SocketPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for s := range p.live {
		s.Close()
	}
	for _, list := range p.free {
		for _, s := range list {
			s.Close()
		}
	}
	p.live = make(map[Socket]struct{})
	p.free = make(map[Role][]Socket)
	return nil
}
