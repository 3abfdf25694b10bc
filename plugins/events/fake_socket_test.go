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

var errFakeClosed = errors.New("socket closed")

// fakeFactory creates in-memory sockets with injectable faults.
type fakeFactory struct {
	mu          sync.Mutex
	created     map[Role][]*fakeSocket
	sendFaults  map[Role]int
	listenFault map[Role]error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		created:     make(map[Role][]*fakeSocket),
		sendFaults:  make(map[Role]int),
		listenFault: make(map[Role]error),
	}
}

func (f *fakeFactory) NewSocket(role Role) (Socket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeSocket{
		f:      f,
		role:   role,
		in:     make(chan [][]byte, 16),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
	f.created[role] = append(f.created[role], s)
	return s, nil
}

func (f *fakeFactory) failSends(role Role, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendFaults[role] = n
}

func (f *fakeFactory) failListen(role Role, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listenFault[role] = err
}

func (f *fakeFactory) takeSendFault(role Role) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendFaults[role] > 0 {
		f.sendFaults[role]--
		return true
	}
	return false
}

func (f *fakeFactory) sockets(role Role) []*fakeSocket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeSocket(nil), f.created[role]...)
}

func (f *fakeFactory) socket(role Role, i int) *fakeSocket {
	list := f.sockets(role)
	if i >= len(list) {
		return nil
	}
	return list[i]
}

type fakeSocket struct {
	f    *fakeFactory
	role Role

	in     chan [][]byte
	errs   chan error
	closed chan struct{}

	mu        sync.Mutex
	endpoint  string
	prefixes  [][]byte
	sent      [][][]byte
	closeOnce sync.Once
}

func (s *fakeSocket) Role() Role {
	return s.role
}

func (s *fakeSocket) Listen(endpoint string) error {
	s.f.mu.Lock()
	err := s.f.listenFault[s.role]
	s.f.mu.Unlock()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.endpoint = endpoint
	s.mu.Unlock()
	return nil
}

func (s *fakeSocket) Dial(endpoint string) error {
	s.mu.Lock()
	s.endpoint = endpoint
	s.mu.Unlock()
	return nil
}

func (s *fakeSocket) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

func (s *fakeSocket) Subscribe(prefix []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefixes = append(s.prefixes, prefix)
	return nil
}

func (s *fakeSocket) Send(frames [][]byte) error {
	if s.isClosed() {
		return errFakeClosed
	}
	if s.f.takeSendFault(s.role) {
		return errors.New("injected send fault")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, frames)
	return nil
}

func (s *fakeSocket) Recv() ([][]byte, error) {
	select {
	case m := <-s.in:
		return m, nil
	case err := <-s.errs:
		return nil, err
	case <-s.closed:
		return nil, errFakeClosed
	}
}

func (s *fakeSocket) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSocket) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *fakeSocket) Sent() [][][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][][]byte(nil), s.sent...)
}

func (s *fakeSocket) Prefixes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.prefixes...)
}
