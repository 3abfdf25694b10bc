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
	"testing"

	. "github.com/onsi/gomega"
)

func TestExpandAddress(t *testing.T) {
	g := NewWithT(t)

	addrs, err := ExpandAddress("tcp://127.0.0.1:10040")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(addrs.Of(RequestChannel)).To(Equal("tcp://127.0.0.1:10040"))
	g.Expect(addrs.Of(BroadcastChannel)).To(Equal("tcp://127.0.0.1:10041"))
	g.Expect(addrs.Of(IngestionChannel)).To(Equal("tcp://127.0.0.1:10042"))

	addrs, err = ExpandAddress("ipc:///tmp/cps_event")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(addrs).To(Equal(Addresses{
		"ipc:///tmp/cps_event_0",
		"ipc:///tmp/cps_event_1",
		"ipc:///tmp/cps_event_2",
	}))

	addrs, err = ExpandAddress("inproc://events")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(addrs.Of(IngestionChannel)).To(Equal("inproc://events_2"))
}

func TestExpandAddressInvalid(t *testing.T) {
	g := NewWithT(t)

	for _, base := range []string{
		"127.0.0.1:10040",
		"tcp://127.0.0.1",
		"tcp://127.0.0.1:65535",
		"udp://127.0.0.1:10040",
		"ipc://",
	} {
		_, err := ExpandAddress(base)
		g.Expect(err).To(HaveOccurred(), base)
	}
}

func TestSocketPoolFreeList(t *testing.T) {
	g := NewWithT(t)

	f := newFakeFactory()
	pool := NewSocketPool(f)

	s1, err := pool.Alloc(RolePush)
	g.Expect(err).ToNot(HaveOccurred())
	pool.Release(s1)
	live, free := pool.Stats()
	g.Expect(live).To(Equal(0))
	g.Expect(free).To(Equal(1))

	s2, err := pool.Alloc(RolePush)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(s2).To(BeIdenticalTo(s1))

	g.Expect(s2.Dial("inproc://x")).To(Succeed())
	pool.Release(s2)
	g.Expect(s2.(*fakeSocket).isClosed()).To(BeTrue())
	_, free = pool.Stats()
	g.Expect(free).To(Equal(0))

	s3, err := pool.Alloc(RoleSub)
	g.Expect(err).ToNot(HaveOccurred())
	pool.Discard(s3)
	g.Expect(s3.(*fakeSocket).isClosed()).To(BeTrue())

	s4, err := pool.Alloc(RolePull)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(pool.Close()).To(Succeed())
	g.Expect(s4.(*fakeSocket).isClosed()).To(BeTrue())
	_, err = pool.Alloc(RolePull)
	g.Expect(err).To(MatchError(ErrPoolClosed))
}
