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

package ipc

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"
	"go.ligato.io/cn-infra/v2/logging/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/ligato/cps-agent/pkg/debug"
	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

// Dispatcher executes decoded requests.
type Dispatcher interface {
	Get(ctx context.Context, filter *object.Object) ([]*object.Object, error)
	Commit(ctx context.Context, txn *api.Transaction, ix int) error
	Revert(ctx context.Context, txn *api.Transaction, ix int) error
	Stats() *object.Object
}

// Server accepts framed request connections. At most workers requests
// are dispatched at once across all connections.
type Server struct {
	d       Dispatcher
	log     logging.Logger
	workers *semaphore.Weighted

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

// NewServer returns server dispatching to d with a pool of workers.
func NewServer(d Dispatcher, workers int, log logging.Logger) *Server {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logrus.DefaultLogger()
	}
	return &Server{
		d:       d,
		log:     log,
		workers: semaphore.NewWeighted(int64(workers)),
		conns:   make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections from l until ctx is canceled. The listener
// and open connections are closed on return.
func (s *Server) Serve(ctx context.Context, l net.Listener) (err error) {
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		l.Close()
		s.closeConns()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.track(conn, true)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.track(conn, false)
			if err := s.ServeConn(ctx, conn); err != nil && ctx.Err() == nil {
				s.log.Warnf("dropping connection %s: %v", conn.RemoteAddr(), err)
			}
		}()
	}
}

// ServeConn serves requests of one connection until it is closed or
// violates the framing. The connection is closed on return.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	codec := NewCodec(conn)
	for {
		t, payload, err := codec.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if debug.IsEnabledFor("ipc") {
			s.log.Debugf("%s: %s request, %d bytes", conn.RemoteAddr(), t, len(payload))
		}
		if err := s.workers.Acquire(ctx, 1); err != nil {
			return err
		}
		err = s.handle(ctx, codec, t, payload)
		s.workers.Release(1)
		if err != nil {
			return err
		}
	}
}

func (s *Server) handle(ctx context.Context, codec *Codec, t MsgType, payload []byte) error {
	var err error
	switch t {
	case MsgGet:
		err = s.handleGet(ctx, codec, payload)
	case MsgCommitChange:
		err = s.handleCommit(ctx, codec, payload)
	case MsgRevert:
		err = s.handleRevert(ctx, codec, payload)
	case MsgStats:
		err = codec.WriteObject(MsgStats, s.d.Stats())
	default:
		err = errors.Wrapf(api.ErrProtocolDesync, "unexpected %s request", t)
	}
	if err != nil {
		return err
	}
	return codec.Flush()
}

func (s *Server) handleGet(ctx context.Context, codec *Codec, payload []byte) error {
	filter, err := decodeRequired(MsgGet, payload)
	if err != nil {
		return err
	}
	if err := requireConcrete(filter); err != nil {
		s.log.Debugf("get: %v", err)
		return codec.WriteReturnCode(api.CodeOf(err))
	}
	objs, err := s.d.Get(ctx, filter)
	if err != nil {
		s.log.Debugf("get %s: %v", filter.Key(), err)
		return codec.WriteReturnCode(api.CodeOf(err))
	}
	for _, o := range objs {
		if err := codec.WriteObject(MsgGetResp, o); err != nil {
			return err
		}
	}
	return codec.WriteFrame(MsgGetDone, nil)
}

func (s *Server) handleCommit(ctx context.Context, codec *Codec, payload []byte) error {
	change, err := decodeRequired(MsgCommitChange, payload)
	if err != nil {
		return err
	}
	t, prevPayload, err := codec.ReadFrame()
	if err != nil {
		return err
	}
	if t != MsgCommitPrev {
		return errors.Wrapf(api.ErrProtocolDesync, "expected %s, got %s", MsgCommitPrev, t)
	}
	prev, err := decodeObject(prevPayload)
	if err != nil {
		return err
	}

	if err := requireConcrete(change); err != nil {
		s.log.Debugf("commit: %v", err)
		return codec.WriteReturnCode(api.CodeOf(err))
	}

	txn := api.NewTransaction(change)
	txn.SetPrev(0, prev)
	if err := s.d.Commit(ctx, txn, 0); err != nil {
		s.log.Debugf("commit %s: %v", change.Key(), err)
		return codec.WriteReturnCode(api.CodeOf(err))
	}
	if err := codec.WriteObject(MsgCommitObject, txn.Change(0)); err != nil {
		return err
	}
	return codec.WriteObject(MsgCommitObject, txn.Prev(0))
}

func (s *Server) handleRevert(ctx context.Context, codec *Codec, payload []byte) error {
	prev, err := decodeRequired(MsgRevert, payload)
	if err != nil {
		return err
	}
	if err := requireConcrete(prev); err != nil {
		s.log.Debugf("revert: %v", err)
		return codec.WriteReturnCode(api.CodeOf(err))
	}
	txn := api.NewTransaction(prev)
	txn.SetPrev(0, prev)
	err = s.d.Revert(ctx, txn, 0)
	if err != nil {
		s.log.Debugf("revert %s: %v", prev.Key(), err)
	}
	return codec.WriteReturnCode(api.CodeOf(err))
}

// requireConcrete refuses request keys without a concrete qualifier.
// Registry lookup treats such keys as patterns, which would let a shorter
// registration of any qualifier win over the longest match.
func requireConcrete(o *object.Object) error {
	if k := o.Key(); k.Qualifier == key.Any {
		return api.WithCode(api.ERR, errors.Errorf("request key %s has no concrete qualifier", k))
	}
	return nil
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closed {
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for conn := range s.conns {
		conn.Close()
	}
}
