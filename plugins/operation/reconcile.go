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
	"time"

	"github.com/pkg/errors"

	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/operation/api"
	"github.com/ligato/cps-agent/plugins/redisdb"
)

// Reconcile runs one reconciler pass over every pattern with a read
// handler. It continues past failing patterns and returns the first error.
func (s *Service) Reconcile(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.mu.RLock()
	patterns := s.reg.patterns(api.CapRead)
	s.mu.RUnlock()

	var first error
	for _, p := range patterns {
		if err := s.syncPattern(ctx, p); err != nil {
			s.log.Warnf("reconcile %s: %v", p, err)
			if first == nil {
				first = err
			}
		}
	}
	s.stats.inc(api.ReconcileCount, 1)
	return first
}

// syncPattern makes the stored objects owned by pattern equal to the live
// objects returned by its read handler. Stored objects missing from the
// live set are deleted and announced with one DELETE event each.
func (s *Service) syncPattern(ctx context.Context, pattern key.Key) error {
	live, err := s.Get(ctx, object.New(pattern))
	if err != nil {
		return errors.Wrap(err, "reading live objects")
	}
	liveByKey := make(map[string]*object.Object, len(live))
	for _, o := range live {
		liveByKey[string(o.PersistenceKey())] = o
	}

	return s.withConn(func(c *redisdb.Conn) error {
		var stored []redisdb.Entry
		for _, k := range pattern.Concrete(key.Journal) {
			entries, err := c.GetObjects(k.Bytes())
			if err != nil {
				return err
			}
			stored = append(stored, entries...)
		}

		var staleKeys [][]byte
		var stale []*object.Object
		unchanged := make(map[string]bool)
		for _, e := range stored {
			if !s.owns(pattern, e.Object.Key()) {
				continue
			}
			if o, ok := liveByKey[string(e.Key)]; ok {
				if s.skipUnchanged && o.Equal(e.Object) {
					unchanged[string(e.Key)] = true
				}
				continue
			}
			staleKeys = append(staleKeys, e.Key)
			stale = append(stale, e.Object)
		}

		if err := c.DeleteKeys(staleKeys); err != nil {
			return err
		}
		for _, o := range stale {
			o.SetOperation(object.OpDelete)
			s.publish(o)
		}
		if len(stale) > 0 {
			s.log.Debugf("reconcile %s: deleted %d stale objects", pattern, len(stale))
			s.stats.inc(api.ReconcileDeleted, uint64(len(stale)))
		}
		reportReconcile(len(stale))

		objs := make([]*object.Object, 0, len(live))
		for _, o := range live {
			if !unchanged[string(o.PersistenceKey())] {
				objs = append(objs, o)
			}
		}
		return c.StoreObjects(objs)
	})
}

// owns reports whether pattern is the read registration serving k.
// Objects under a more specific registration are left to its own pass.
func (s *Service) owns(pattern, k key.Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.reg.find(k, api.CapRead)
	return r == nil || r.pattern.Equal(pattern)
}

// replayCachedState commits journal objects stored under pattern and
// then reconciles the pattern when it has a read handler.
func (s *Service) replayCachedState(ctx context.Context, pattern key.Key, read bool) {
	var entries []redisdb.Entry
	err := s.withConn(func(c *redisdb.Conn) (err error) {
		entries, err = c.GetObjects(pattern.WithQualifier(key.Journal).Bytes())
		return err
	})
	if err != nil {
		s.log.Warnf("loading journal of %s: %v", pattern, err)
		return
	}
	for _, e := range entries {
		e.Object.SetCachedState(true)
		if err := s.Commit(ctx, api.NewTransaction(e.Object), 0); err != nil {
			s.log.Warnf("replaying journal object %s: %v", e.Object.Key(), err)
		}
	}
	if len(entries) > 0 {
		s.log.Infof("replayed %d journal objects of %s", len(entries), pattern)
	}
	if read {
		if err := s.syncPattern(ctx, pattern); err != nil {
			s.log.Warnf("initial sync of %s: %v", pattern, err)
		}
	}
}

// RunReconciler runs Reconcile every interval until ctx is done.
func (s *Service) RunReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Reconcile(ctx); err != nil {
				s.log.Debugf("reconciler pass finished with error: %v", err)
			}
		}
	}
}
