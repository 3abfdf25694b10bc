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
	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

// registration binds a key pattern to its handler.
type registration struct {
	pattern key.Key
	handler api.Handler
	caps    api.Capability
}

// Registration describes one entry of the registration table.
type Registration struct {
	Pattern      string `json:"pattern"`
	Capabilities string `json:"capabilities"`
}

// registry is an ordered list of registrations. For every pair of entries
// where one pattern is a strict prefix of the other, the longer pattern
// precedes the shorter one. Identical patterns keep registration order.
type registry struct {
	entries []*registration
}

// newRegistration drops advertised capabilities h does not implement.
func newRegistration(pattern key.Key, h api.Handler) *registration {
	caps := h.Capabilities()
	if _, ok := h.(api.Reader); !ok {
		caps &^= api.CapRead
	}
	if _, ok := h.(api.Writer); !ok {
		caps &^= api.CapWrite
	}
	if _, ok := h.(api.Rollbacker); !ok {
		caps &^= api.CapRollback
	}
	return &registration{
		pattern: pattern.Clone(),
		handler: h,
		caps:    caps,
	}
}

// insert places r ahead of the first entry whose pattern is a strict
// prefix of r's pattern, or at the end.
func (r *registry) insert(reg *registration) {
	for i, e := range r.entries {
		if e.pattern.Len() < reg.pattern.Len() && e.pattern.Matches(reg.pattern) {
			r.entries = append(r.entries, nil)
			copy(r.entries[i+1:], r.entries[i:])
			r.entries[i] = reg
			return
		}
	}
	r.entries = append(r.entries, reg)
}

// find returns the first entry with capability c matching k.
func (r *registry) find(k key.Key, c api.Capability) *registration {
	for _, e := range r.entries {
		if e.caps.Has(c) && e.pattern.Matches(k) {
			return e
		}
	}
	return nil
}

// patterns returns patterns of entries with capability c in table order.
func (r *registry) patterns(c api.Capability) []key.Key {
	var keys []key.Key
	for _, e := range r.entries {
		if e.caps.Has(c) {
			keys = append(keys, e.pattern.Clone())
		}
	}
	return keys
}

func (r *registry) list() []Registration {
	list := make([]Registration, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, Registration{
			Pattern:      e.pattern.String(),
			Capabilities: e.caps.String(),
		})
	}
	return list
}
