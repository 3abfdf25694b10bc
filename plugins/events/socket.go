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
	"context"
	"sync"

	"github.com/go-zeromq/zmq4"
	"github.com/pkg/errors"
)

// Role is the messaging pattern role of a socket.
type Role int

const (
	RoleRouter Role = iota
	RolePub
	RoleSub
	RolePush
	RolePull
)

func (r Role) String() string {
	switch r {
	case RoleRouter:
		return "router"
	case RolePub:
		return "pub"
	case RoleSub:
		return "sub"
	case RolePush:
		return "push"
	case RolePull:
		return "pull"
	}
	return "unknown"
}

// Socket is a message socket carrying multi-frame messages.
type Socket interface {
	Role() Role
	// Listen binds socket to endpoint.
	Listen(endpoint string) error
	// Dial connects socket to endpoint.
	Dial(endpoint string) error
	// Endpoint returns the endpoint the socket is attached to, or "".
	Endpoint() string
	// Subscribe adds a key prefix filter (sub sockets only).
	Subscribe(prefix []byte) error
	// Send sends one message, frame boundaries are preserved.
	Send(frames [][]byte) error
	// Recv blocks until a message arrives or the socket is closed.
	Recv() ([][]byte, error)
	Close() error
}

// Factory creates sockets of a given role.
type Factory interface {
	NewSocket(role Role) (Socket, error)
}

// ZMQFactory creates zmq sockets bound to one context.
type ZMQFactory struct {
	ctx  context.Context
	opts []zmq4.Option
}

// NewZMQFactory returns factory whose sockets live until ctx is done.
func NewZMQFactory(ctx context.Context, opts ...zmq4.Option) *ZMQFactory {
	return &ZMQFactory{ctx: ctx, opts: opts}
}

// NewSocket implements Factory.
func (f *ZMQFactory) NewSocket(role Role) (Socket, error) {
	var s zmq4.Socket
	switch role {
	case RoleRouter:
		s = zmq4.NewRouter(f.ctx, f.opts...)
	case RolePub:
		s = zmq4.NewPub(f.ctx, f.opts...)
	case RoleSub:
		s = zmq4.NewSub(f.ctx, f.opts...)
	case RolePush:
		s = zmq4.NewPush(f.ctx, f.opts...)
	case RolePull:
		s = zmq4.NewPull(f.ctx, f.opts...)
	default:
		return nil, errors.Errorf("unsupported socket role %d", role)
	}
	return &zmqSocket{role: role, sock: s}, nil
}

type zmqSocket struct {
	role Role
	sock zmq4.Socket

	mu       sync.Mutex
	endpoint string
}

func (s *zmqSocket) Role() Role {
	return s.role
}

func (s *zmqSocket) Listen(endpoint string) error {
	if err := s.sock.Listen(endpoint); err != nil {
		return err
	}
	s.setEndpoint(endpoint)
	return nil
}

func (s *zmqSocket) Dial(endpoint string) error {
	if err := s.sock.Dial(endpoint); err != nil {
		return err
	}
	s.setEndpoint(endpoint)
	return nil
}

func (s *zmqSocket) setEndpoint(endpoint string) {
	s.mu.Lock()
	s.endpoint = endpoint
	s.mu.Unlock()
}

func (s *zmqSocket) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

func (s *zmqSocket) Subscribe(prefix []byte) error {
	if s.role != RoleSub {
		return errors.Errorf("subscribe on %s socket", s.role)
	}
	return s.sock.SetOption(zmq4.OptionSubscribe, string(prefix))
}

func (s *zmqSocket) Send(frames [][]byte) error {
	return s.sock.Send(zmq4.NewMsgFrom(frames...))
}

func (s *zmqSocket) Recv() ([][]byte, error) {
	msg, err := s.sock.Recv()
	if err != nil {
		return nil, err
	}
	return msg.Frames, nil
}

func (s *zmqSocket) Close() error {
	return s.sock.Close()
}
