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

package operation

import (
	"context"
	"sync"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

type fakeDirectory struct {
	mu         sync.Mutex
	down       bool
	registered map[string]string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{registered: make(map[string]string)}
}

func (d *fakeDirectory) Register(ctx context.Context, address string, pattern key.Key) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down {
		return errors.New("directory down")
	}
	d.registered[pattern.String()] = address
	return nil
}

func (d *fakeDirectory) Ping(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down {
		return errors.New("directory down")
	}
	return nil
}

func (d *fakeDirectory) setDown(down bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.down = down
	if down {
		d.registered = make(map[string]string)
	}
}

func (d *fakeDirectory) patterns() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := make(map[string]string, len(d.registered))
	for k, v := range d.registered {
		m[k] = v
	}
	return m
}

func TestDirectoryUpkeep(t *testing.T) {
	g := NewWithT(t)
	dir := newFakeDirectory()
	svc := NewService(WithDirectory(dir, "tcp://127.0.0.1:10030"))
	ctx := context.Background()
	calls := map[string]int{}

	// registered before the directory is connected
	svc.Register(ctx, key.New(key.Target, 1), readHandler("a", calls))
	g.Expect(dir.patterns()).To(BeEmpty())
	g.Expect(svc.DirectoryConnected()).To(BeFalse())

	svc.MaintainDirectory(ctx)
	g.Expect(svc.DirectoryConnected()).To(BeTrue())
	g.Expect(dir.patterns()).To(Equal(map[string]string{"target/1": "tcp://127.0.0.1:10030"}))

	// registered while connected
	svc.Register(ctx, key.New(key.Observed, 2, 3), readHandler("b", calls))
	g.Expect(dir.patterns()).To(HaveKey("observed/2.3"))

	dir.setDown(true)
	svc.MaintainDirectory(ctx)
	g.Expect(svc.DirectoryConnected()).To(BeFalse())
	svc.MaintainDirectory(ctx)
	g.Expect(svc.DirectoryConnected()).To(BeFalse())

	dir.setDown(false)
	svc.MaintainDirectory(ctx)
	g.Expect(svc.DirectoryConnected()).To(BeTrue())
	g.Expect(dir.patterns()).To(HaveLen(2))

	stats := api.StatsFromObject(svc.Stats())
	g.Expect(stats["NS_CONNECTS"]).To(BeEquivalentTo(2))
	g.Expect(stats["NS_DISCONNECTS"]).To(BeEquivalentTo(1))
}

func TestDirectoryAdvertiseFailureDisconnects(t *testing.T) {
	g := NewWithT(t)
	dir := newFakeDirectory()
	svc := NewService(WithDirectory(dir, "ipc:///tmp/cps"))
	ctx := context.Background()
	calls := map[string]int{}

	svc.MaintainDirectory(ctx)
	g.Expect(svc.DirectoryConnected()).To(BeTrue())

	dir.setDown(true)
	svc.Register(ctx, key.New(key.Target, 7), readHandler("a", calls))
	g.Expect(svc.DirectoryConnected()).To(BeFalse())

	dir.setDown(false)
	svc.MaintainDirectory(ctx)
	g.Expect(dir.patterns()).To(Equal(map[string]string{"target/7": "ipc:///tmp/cps"}))
}
