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
	"testing"

	. "github.com/onsi/gomega"

	"github.com/ligato/cps-agent/pkg/confload"
	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/pkg/metrics"
	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/operation/api"
	"github.com/ligato/cps-agent/plugins/redisdb"
)

type poolProvider struct {
	pool *redisdb.Pool
}

func (p poolProvider) Pool() *redisdb.Pool {
	return p.pool
}

func TestPluginLifecycle(t *testing.T) {
	g := NewWithT(t)
	pool, mr := newTestStore(t)
	dir := newFakeDirectory()

	p := NewPlugin(UseDeps(func(deps *Deps) {
		deps.Cfg = confload.Inline("operation", []byte("reconcile-interval: 20ms\ndirectory-retry: 20ms\n"))
		deps.Redis = poolProvider{pool: pool}
		deps.Directory = dir
		deps.AdvertiseAddress = func() string { return "tcp://127.0.0.1:10030" }
	}))
	g.Expect(p.Init()).To(Succeed())
	g.Expect(p.AfterInit()).To(Succeed())
	defer func() {
		g.Expect(p.Close()).To(Succeed())
		_, err := metrics.Retrieve("operation")
		g.Expect(err).To(HaveOccurred())
	}()

	live := &liveState{}
	live.set(cachedObject(object.OpSet, 2, 5, 1))
	p.Service().Register(context.Background(), key.New(key.Target, 2, 5), live.handler())

	g.Eventually(mr.Keys).Should(HaveLen(1))
	g.Eventually(dir.patterns).Should(HaveKey("target/2.5"))

	st, err := metrics.Retrieve("operation")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(st).To(BeAssignableToTypeOf(&Stats{}))
	g.Eventually(func() uint64 {
		return api.StatsFromObject(p.Service().Stats())["RECONCILE_COUNT"]
	}).Should(BeNumerically(">", 0))
}

type disabledDirectory struct {
	*fakeDirectory
}

func (disabledDirectory) Disabled() bool { return true }

func TestPluginSkipsDisabledDirectory(t *testing.T) {
	g := NewWithT(t)
	dir := disabledDirectory{newFakeDirectory()}

	p := NewPlugin(UseDeps(func(deps *Deps) {
		deps.Cfg = confload.Inline("operation", []byte("reconcile-interval: 0s\n"))
		deps.Directory = dir
	}))
	g.Expect(p.Init()).To(Succeed())
	g.Expect(p.AfterInit()).To(Succeed())
	defer p.Close()

	p.Service().Register(context.Background(), key.New(key.Target, 2, 5), &api.HandlerFuncs{})
	g.Consistently(dir.patterns, "100ms").Should(BeEmpty())
	g.Expect(p.Service().DirectoryConnected()).To(BeFalse())
}
