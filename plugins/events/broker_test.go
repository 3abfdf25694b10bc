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
	"time"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

func startFakeBroker(t *testing.T, opts ...BrokerOption) (*Broker, *fakeFactory, *SocketPool) {
	g := NewWithT(t)
	f := newFakeFactory()
	pool := NewSocketPool(f)
	addrs, err := ExpandAddress("inproc://broker-test")
	g.Expect(err).ToNot(HaveOccurred())
	b := NewBroker(addrs, pool, append([]BrokerOption{WithPollTimeout(10 * time.Millisecond)}, opts...)...)
	g.Expect(b.Start()).To(Succeed())
	t.Cleanup(b.Stop)
	return b, f, pool
}

func frames(parts ...string) [][]byte {
	var fr [][]byte
	for _, p := range parts {
		fr = append(fr, []byte(p))
	}
	return fr
}

func TestBrokerRelaysFrameForFrame(t *testing.T) {
	g := NewWithT(t)
	b, f, _ := startFakeBroker(t)

	g.Expect(f.socket(RoleRouter, 0).Endpoint()).To(Equal("inproc://broker-test_0"))
	g.Expect(f.socket(RolePub, 0).Endpoint()).To(Equal("inproc://broker-test_1"))
	g.Expect(f.socket(RolePull, 0).Endpoint()).To(Equal("inproc://broker-test_2"))

	f.socket(RolePull, 0).in <- frames("key", "payload")
	f.socket(RolePull, 0).in <- frames("key", "seq", "payload")

	g.Eventually(f.socket(RolePub, 0).Sent).Should(Equal([][][]byte{
		frames("key", "payload"),
		frames("key", "seq", "payload"),
	}))
	g.Expect(b.Stats().Relayed).To(Equal(uint64(2)))
}

func TestBrokerIgnoresRequestChannel(t *testing.T) {
	g := NewWithT(t)
	b, f, _ := startFakeBroker(t)

	f.socket(RoleRouter, 0).in <- frames("peer", "hello")
	f.socket(RolePull, 0).in <- frames("key", "payload")

	g.Eventually(f.socket(RolePub, 0).Sent).Should(HaveLen(1))
	g.Consistently(f.socket(RolePub, 0).Sent, 50*time.Millisecond).Should(HaveLen(1))
	g.Expect(b.Stats().Relayed).To(Equal(uint64(1)))
}

func TestBrokerRecoversBroadcastSocket(t *testing.T) {
	g := NewWithT(t)
	b, f, _ := startFakeBroker(t)

	f.failSends(RolePub, 2)
	f.socket(RolePull, 0).in <- frames("key", "payload")

	g.Eventually(func() int { return len(f.sockets(RolePub)) }).Should(Equal(3))
	g.Eventually(func() [][][]byte {
		if s := f.socket(RolePub, 2); s != nil {
			return s.Sent()
		}
		return nil
	}).Should(Equal([][][]byte{frames("key", "payload")}))

	g.Expect(f.socket(RolePub, 0).isClosed()).To(BeTrue())
	g.Expect(f.socket(RolePub, 1).isClosed()).To(BeTrue())
	g.Expect(f.socket(RolePub, 2).Endpoint()).To(Equal("inproc://broker-test_1"))

	// other channels untouched
	g.Expect(f.sockets(RolePull)).To(HaveLen(1))
	g.Expect(f.sockets(RoleRouter)).To(HaveLen(1))
	g.Expect(f.socket(RolePull, 0).isClosed()).To(BeFalse())

	stats := b.Stats()
	g.Expect(stats.Relayed).To(Equal(uint64(1)))
	g.Expect(stats.Recovered).To(Equal(uint64(2)))
	g.Expect(stats.Dropped).To(BeZero())
}

func TestBrokerDropsAfterMaxRetry(t *testing.T) {
	g := NewWithT(t)
	b, f, _ := startFakeBroker(t, WithMaxRetry(3))

	f.failSends(RolePub, 100)
	f.socket(RolePull, 0).in <- frames("key", "payload")

	g.Eventually(func() uint64 { return b.Stats().Dropped }).Should(Equal(uint64(1)))
	g.Expect(f.sockets(RolePub)).To(HaveLen(4))
	g.Expect(b.Stats().Relayed).To(BeZero())
}

func TestBrokerRecoversIngestionSocket(t *testing.T) {
	g := NewWithT(t)
	b, f, _ := startFakeBroker(t)

	f.socket(RolePull, 0).errs <- errors.New("connection reset")

	g.Eventually(func() int { return len(f.sockets(RolePull)) }).Should(Equal(2))
	g.Expect(f.socket(RolePull, 0).isClosed()).To(BeTrue())
	g.Expect(f.sockets(RolePub)).To(HaveLen(1))

	f.socket(RolePull, 1).in <- frames("key", "after-reset")
	g.Eventually(f.socket(RolePub, 0).Sent).Should(ContainElement(frames("key", "after-reset")))
	g.Expect(b.Stats().Recovered).To(Equal(uint64(1)))
}

func TestBrokerRevivesChannelAfterFailedRecovery(t *testing.T) {
	g := NewWithT(t)
	b, f, _ := startFakeBroker(t)

	f.failListen(RolePull, errors.New("address in use"))
	f.socket(RolePull, 0).errs <- errors.New("connection reset")

	// every poll period retries the rebind
	g.Eventually(func() int { return len(f.sockets(RolePull)) }).Should(BeNumerically(">=", 3))
	g.Expect(b.Stats().Recovered).To(BeZero())

	f.failListen(RolePull, nil)
	g.Eventually(func() uint64 { return b.Stats().Recovered }).Should(Equal(uint64(1)))

	pulls := f.sockets(RolePull)
	live := pulls[len(pulls)-1]
	g.Expect(live.isClosed()).To(BeFalse())
	g.Expect(live.Endpoint()).To(Equal("inproc://broker-test_2"))

	live.in <- frames("key", "after-outage")
	g.Eventually(f.socket(RolePub, 0).Sent).Should(ContainElement(frames("key", "after-outage")))
	g.Expect(f.sockets(RolePub)).To(HaveLen(1))
}

func TestBrokerBindFailure(t *testing.T) {
	g := NewWithT(t)

	f := newFakeFactory()
	f.failListen(RolePub, errors.New("address in use"))
	pool := NewSocketPool(f)
	addrs, _ := ExpandAddress("tcp://127.0.0.1:10040")
	b := NewBroker(addrs, pool)

	err := b.Start()
	g.Expect(err).To(MatchError(ContainSubstring("binding broadcast channel")))
	g.Expect(f.socket(RoleRouter, 0).isClosed()).To(BeTrue())
	live, _ := pool.Stats()
	g.Expect(live).To(BeZero())
	b.Stop()
}

func TestSubscriberReceive(t *testing.T) {
	g := NewWithT(t)

	f := newFakeFactory()
	pool := NewSocketPool(f)
	sub, err := NewSubscriber(pool, "inproc://sub_1")
	g.Expect(err).ToNot(HaveOccurred())
	defer sub.Close()
	g.Expect(sub.Subscribe([]byte("ab"))).To(Succeed())

	sock := f.socket(RoleSub, 0)
	g.Expect(sock.Prefixes()).To(Equal([][]byte{[]byte("ab")}))

	_, err = sub.Receive(10 * time.Millisecond)
	g.Expect(err).To(MatchError(api.ErrTimeout))

	sock.in <- frames("abc", "data")
	ev, err := sub.Receive(time.Second)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ev).To(Equal(Event{Key: []byte("abc"), Data: []byte("data")}))

	sock.in <- frames("abc", "7", "data")
	ev, err = sub.Receive(time.Second)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ev.Seq).To(Equal([]byte("7")))

	sock.in <- frames("abc")
	_, err = sub.Receive(time.Second)
	g.Expect(api.CodeOf(err)).To(Equal(api.TransportFailure))
}

func TestSubscriberAnyQualifierKey(t *testing.T) {
	g := NewWithT(t)

	f := newFakeFactory()
	pool := NewSocketPool(f)
	sub, err := NewSubscriber(pool, "inproc://sub_1")
	g.Expect(err).ToNot(HaveOccurred())
	defer sub.Close()

	pattern := key.New(key.Any, 3)
	g.Expect(sub.SubscribeKey(pattern)).To(Succeed())

	var want [][]byte
	for _, k := range pattern.Concrete() {
		want = append(want, k.Bytes())
	}
	g.Expect(f.socket(RoleSub, 0).Prefixes()).To(Equal(want))
	g.Expect(want).ToNot(ContainElement(pattern.Bytes()))
}

func TestSubscriberWithoutReconnect(t *testing.T) {
	g := NewWithT(t)

	f := newFakeFactory()
	pool := NewSocketPool(f)
	sub, err := NewSubscriber(pool, "inproc://sub_1")
	g.Expect(err).ToNot(HaveOccurred())
	defer sub.Close()

	f.socket(RoleSub, 0).errs <- errors.New("connection reset")
	_, err = sub.Receive(time.Second)
	g.Expect(api.CodeOf(err)).To(Equal(api.TransportFailure))

	_, err = sub.Receive(10 * time.Millisecond)
	g.Expect(err).To(MatchError(ErrSubscriberBroken))
	g.Expect(f.sockets(RoleSub)).To(HaveLen(1))
}

func TestSubscriberAutoReconnect(t *testing.T) {
	g := NewWithT(t)

	f := newFakeFactory()
	pool := NewSocketPool(f)
	sub, err := NewSubscriber(pool, "inproc://sub_1", WithAutoReconnect(true))
	g.Expect(err).ToNot(HaveOccurred())
	defer sub.Close()
	g.Expect(sub.Subscribe([]byte("k1"))).To(Succeed())
	g.Expect(sub.Subscribe([]byte("k2"))).To(Succeed())

	f.socket(RoleSub, 0).errs <- errors.New("connection reset")
	_, err = sub.Receive(time.Second)
	g.Expect(api.CodeOf(err)).To(Equal(api.TransportFailure))

	g.Expect(f.sockets(RoleSub)).To(HaveLen(2))
	g.Expect(f.socket(RoleSub, 0).isClosed()).To(BeTrue())
	fresh := f.socket(RoleSub, 1)
	g.Expect(fresh.Endpoint()).To(Equal("inproc://sub_1"))
	g.Expect(fresh.Prefixes()).To(Equal([][]byte{[]byte("k1"), []byte("k2")}))

	fresh.in <- frames("k2", "data")
	ev, err := sub.Receive(time.Second)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ev.Key).To(Equal([]byte("k2")))
}
