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
	"sync"
	"time"

	"github.com/ligato/cps-agent/pkg/metrics"
	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

// Stats is the JSON view of the service counters.
type Stats struct {
	Calls    metrics.Calls     `json:"calls"`
	Counters map[string]uint64 `json:"counters"`
}

// stats keeps operation counters under one lock.
type stats struct {
	mu       sync.Mutex
	get      metrics.CallStats
	set      metrics.CallStats
	counters map[api.StatID]uint64
}

func newStats() *stats {
	return &stats{
		get:      metrics.CallStats{Name: "GET"},
		set:      metrics.CallStats{Name: "SET"},
		counters: make(map[api.StatID]uint64),
	}
}

// callTimer measures one dispatch. The call is counted even when no
// handler was started.
type callTimer struct {
	s       *stats
	call    *metrics.CallStats
	start   time.Time
	started bool
}

func (s *stats) timer(call *metrics.CallStats) *callTimer {
	return &callTimer{s: s, call: call}
}

func (t *callTimer) Start() {
	t.start = time.Now()
	t.started = true
}

// Stop records the call and counts failure when err is not nil.
func (t *callTimer) Stop(err error) time.Duration {
	var took time.Duration
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.started {
		took = time.Since(t.start)
		t.call.Increment(took)
	} else {
		t.call.Count++
	}
	if err != nil {
		t.call.Fail()
	}
	return took
}

func (s *stats) inc(id api.StatID, n uint64) {
	s.mu.Lock()
	s.counters[id] += n
	s.mu.Unlock()
}

func (s *stats) value(id api.StatID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockedValue(id)
}

func (s *stats) lockedValue(id api.StatID) uint64 {
	us := func(d metrics.Duration) uint64 {
		return uint64(time.Duration(d) / time.Microsecond)
	}
	switch id {
	case api.GetMinTime:
		return us(s.get.Min)
	case api.GetMaxTime:
		return us(s.get.Max)
	case api.GetAveTime:
		return us(s.get.Avg)
	case api.GetCount:
		return s.get.Count
	case api.GetFailed:
		return s.get.Failed
	case api.SetMinTime:
		return us(s.set.Min)
	case api.SetMaxTime:
		return us(s.set.Max)
	case api.SetAveTime:
		return us(s.set.Avg)
	case api.SetCount:
		return s.set.Count
	case api.SetFailed:
		return s.set.Failed
	}
	return s.counters[id]
}

// object returns snapshot of all counters, times in microseconds.
func (s *stats) object() *object.Object {
	o := object.New(api.StatsKey())
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range api.AllStats() {
		o.SetUint64(object.AttrID(id), s.lockedValue(id))
	}
	return o
}

func (s *stats) snapshot() *Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	get, set := s.get, s.set
	st := &Stats{
		Calls:    metrics.Calls{get.Name: &get, set.Name: &set},
		Counters: make(map[string]uint64, len(s.counters)),
	}
	for id, v := range s.counters {
		st.Counters[id.String()] = v
	}
	return st
}
