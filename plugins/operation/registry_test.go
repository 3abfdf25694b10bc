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

	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

func readHandler(name string, calls map[string]int) *api.HandlerFuncs {
	return &api.HandlerFuncs{
		ReadFunc: func(ctx context.Context, filter *object.Object) ([]*object.Object, error) {
			calls[name]++
			return nil, nil
		},
	}
}

func patternsOf(r *registry) []string {
	var s []string
	for _, e := range r.entries {
		s = append(s, e.pattern.String())
	}
	return s
}

func TestRegistryMoreSpecificFirst(t *testing.T) {
	g := NewWithT(t)
	calls := map[string]int{}

	orders := [][]key.Key{
		{key.New(key.Target, 1), key.New(key.Target, 1, 10), key.New(key.Target, 1, 10, 5)},
		{key.New(key.Target, 1, 10, 5), key.New(key.Target, 1, 10), key.New(key.Target, 1)},
		{key.New(key.Target, 1, 10), key.New(key.Target, 1), key.New(key.Target, 1, 10, 5)},
		{key.New(key.Target, 1, 10, 5), key.New(key.Target, 1), key.New(key.Target, 1, 10)},
	}
	for _, order := range orders {
		var r registry
		for _, p := range order {
			r.insert(newRegistration(p, readHandler(p.String(), calls)))
		}
		g.Expect(patternsOf(&r)).To(Equal([]string{"target/1.10.5", "target/1.10", "target/1"}))

		g.Expect(r.find(key.New(key.Target, 1, 10, 5, 7), api.CapRead).pattern.String()).To(Equal("target/1.10.5"))
		g.Expect(r.find(key.New(key.Target, 1, 10, 6), api.CapRead).pattern.String()).To(Equal("target/1.10"))
		g.Expect(r.find(key.New(key.Target, 1, 11), api.CapRead).pattern.String()).To(Equal("target/1"))
		g.Expect(r.find(key.New(key.Target, 2), api.CapRead)).To(BeNil())
		g.Expect(r.find(key.New(key.Observed, 1, 10), api.CapRead)).To(BeNil())
	}
}

func TestRegistryEqualPatternsKeepOrder(t *testing.T) {
	g := NewWithT(t)
	calls := map[string]int{}

	var r registry
	first := newRegistration(key.New(key.Target, 4, 2), readHandler("first", calls))
	second := newRegistration(key.New(key.Target, 4, 2), readHandler("second", calls))
	r.insert(first)
	r.insert(newRegistration(key.New(key.Target, 4), readHandler("short", calls)))
	r.insert(second)

	g.Expect(r.entries).To(HaveLen(3))
	g.Expect(r.entries[0]).To(BeIdenticalTo(first))
	g.Expect(r.entries[1]).To(BeIdenticalTo(second))
	g.Expect(r.find(key.New(key.Target, 4, 2, 1), api.CapRead)).To(BeIdenticalTo(first))
}

func TestRegistryFindByCapability(t *testing.T) {
	g := NewWithT(t)
	calls := map[string]int{}

	var r registry
	r.insert(newRegistration(key.New(key.Target, 1), &api.HandlerFuncs{
		WriteFunc: func(ctx context.Context, txn *api.Transaction, ix int) error { return nil },
	}))
	r.insert(newRegistration(key.New(key.Target, 1, 10), readHandler("read", calls)))

	k := key.New(key.Target, 1, 10, 5)
	g.Expect(r.find(k, api.CapRead).pattern.String()).To(Equal("target/1.10"))
	g.Expect(r.find(k, api.CapWrite).pattern.String()).To(Equal("target/1"))
	g.Expect(r.find(k, api.CapRollback)).To(BeNil())

	g.Expect(r.patterns(api.CapRead)).To(HaveLen(1))
	g.Expect(r.patterns(0)).To(HaveLen(2))
	g.Expect(r.list()).To(Equal([]Registration{
		{Pattern: "target/1.10", Capabilities: "read"},
		{Pattern: "target/1", Capabilities: "write"},
	}))
}

func TestRegistryAnyQualifier(t *testing.T) {
	g := NewWithT(t)
	calls := map[string]int{}

	var r registry
	r.insert(newRegistration(key.New(key.Any, 3), readHandler("any", calls)))
	r.insert(newRegistration(key.New(key.Observed, 3, 1), readHandler("observed", calls)))

	g.Expect(r.find(key.New(key.Observed, 3, 1, 9), api.CapRead).pattern.String()).To(Equal("observed/3.1"))
	g.Expect(r.find(key.New(key.Target, 3, 1, 9), api.CapRead).pattern.Qualifier).To(Equal(key.Any))
}
