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

package redisdb

import (
	"sync"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"
	"go.ligato.io/cn-infra/v2/logging/logrus"

	"github.com/ligato/cps-agent/plugins/operation/api"
)

// ErrPoolClosed is returned by Get after Close.
var ErrPoolClosed = errors.New("connection pool is closed")

// Pool leases connections exclusively. A connection returned by Get is
// not handed out again until it is given back with Put or Remove.
type Pool struct {
	dial    DialFunc
	maxIdle int
	log     logging.Logger

	mu     sync.Mutex
	idle   []*Conn
	leased map[*Conn]struct{}
	closed bool
}

// NewPool returns pool opening connections lazily with dial.
func NewPool(dial DialFunc, maxIdle int, log logging.Logger) *Pool {
	if log == nil {
		log = logrus.DefaultLogger()
	}
	return &Pool{
		dial:    dial,
		maxIdle: maxIdle,
		log:     log,
		leased:  make(map[*Conn]struct{}),
	}
}

// Get leases an idle connection or opens a new one.
func (p *Pool) Get() (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	for len(p.idle) > 0 {
		c := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		if !c.healthy() {
			c.Close()
			continue
		}
		p.leased[c] = struct{}{}
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	c, err := newConn(p.dial, p.log)
	if err != nil {
		return nil, errors.Wrapf(api.ErrStoreFailure, "connect: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		c.Close()
		return nil, ErrPoolClosed
	}
	p.leased[c] = struct{}{}
	return c, nil
}

// Put returns leased connection. Connections with undrained replies or an
// open MULTI are closed instead of pooled so that no reply leaks into the
// next borrower.
func (p *Pool) Put(c *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.leased[c]; !ok {
		p.log.Warn("put of a connection not leased from the pool")
		return
	}
	delete(p.leased, c)
	if c.pending != 0 || c.inMulti {
		p.log.Warnf("discarding connection with %d undrained replies", c.pending)
		c.Close()
		return
	}
	if p.closed || !c.healthy() || len(p.idle) >= p.maxIdle {
		c.Close()
		return
	}
	p.idle = append(p.idle, c)
}

// Remove closes a leased connection that should not be reused.
func (p *Pool) Remove(c *Conn) {
	p.mu.Lock()
	delete(p.leased, c)
	p.mu.Unlock()
	c.Close()
}

// Stats returns number of idle and leased connections.
func (p *Pool) Stats() (idle, leased int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle), len(p.leased)
}

// Close closes idle connections. Leased connections are closed when put back.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for _, c := range p.idle {
		c.Close()
	}
	p.idle = nil
	return nil
}
