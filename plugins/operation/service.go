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

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"
	"go.ligato.io/cn-infra/v2/logging/logrus"

	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/operation/api"
	"github.com/ligato/cps-agent/plugins/redisdb"
)

// JournalSequence names the counter stamping staged journal objects.
const JournalSequence = "cps:journal:seq"

// Store leases connections of the durable cache.
type Store interface {
	Get() (*redisdb.Conn, error)
	Put(c *redisdb.Conn)
	Remove(c *redisdb.Conn)
}

// Publisher publishes object events.
type Publisher interface {
	PublishObject(o *object.Object) error
}

// Directory advertises served key patterns to peers.
type Directory interface {
	Register(ctx context.Context, address string, pattern key.Key) error
	Ping(ctx context.Context) error
}

// Service routes operations to registered handlers, mirrors committed
// cached-state objects into the durable cache and publishes their events.
type Service struct {
	log           logging.Logger
	store         Store
	pub           Publisher
	skipUnchanged bool

	mu  sync.RWMutex
	reg registry

	stats *stats

	dirMu   sync.Mutex
	dir     Directory
	dirAddr string
	dirUp   bool
}

// ServiceOption customizes Service.
type ServiceOption func(*Service)

// WithStore sets the durable cache. Without it cached-state objects are
// not persisted.
func WithStore(store Store) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithPublisher sets the event publisher.
func WithPublisher(pub Publisher) ServiceOption {
	return func(s *Service) {
		s.pub = pub
	}
}

// WithDirectory advertises registered patterns as served at address.
func WithDirectory(dir Directory, address string) ServiceOption {
	return func(s *Service) {
		s.dir = dir
		s.dirAddr = address
	}
}

// WithLogger sets the service logger.
func WithLogger(log logging.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// WithSkipUnchanged makes the reconciler skip live objects equal to the
// stored ones.
func WithSkipUnchanged(skip bool) ServiceOption {
	return func(s *Service) {
		s.skipUnchanged = skip
	}
}

// NewService returns service with empty registration table.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		log:   logrus.DefaultLogger(),
		stats: newStats(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register binds handler h to pattern. Registration always succeeds.
// Journal objects stored under the pattern are replayed through commit
// once the table is updated.
func (s *Service) Register(ctx context.Context, pattern key.Key, h api.Handler) {
	reg := newRegistration(pattern, h)

	s.mu.Lock()
	s.reg.insert(reg)
	n := len(s.reg.entries)
	s.mu.Unlock()

	reportRegistrations(n)
	s.log.Infof("registered %s (%s)", reg.pattern, reg.caps)

	s.advertise(ctx, reg.pattern)
	if reg.caps.Has(api.CapWrite) && s.store != nil {
		s.replayCachedState(ctx, reg.pattern, reg.caps.Has(api.CapRead))
	}
}

// Registrations lists the registration table in lookup order.
func (s *Service) Registrations() []Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg.list()
}

// Get returns objects matching filter from the most specific read handler.
func (s *Service) Get(ctx context.Context, filter *object.Object) (objs []*object.Object, err error) {
	tm := s.stats.timer(&s.stats.get)
	defer func() {
		took := tm.Stop(err)
		reportOperation("get", err, took.Seconds())
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	r := s.reg.find(filter.Key(), api.CapRead)
	if r == nil {
		return nil, errors.Wrapf(api.ErrNoHandler, "get %s", filter.Key())
	}
	tm.Start()
	return r.handler.(api.Reader).Read(ctx, filter)
}

// Commit applies change ix of txn through the matching write handler.
// Successful commits of cached-state objects are published and mirrored
// into the durable cache.
func (s *Service) Commit(ctx context.Context, txn *api.Transaction, ix int) (err error) {
	tm := s.stats.timer(&s.stats.set)
	defer func() {
		took := tm.Stop(err)
		reportOperation("commit", err, took.Seconds())
	}()

	if ix < 0 || ix >= txn.Len() || txn.Change(ix) == nil {
		return errors.Errorf("commit: no change at index %d", ix)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	o := txn.Change(ix)
	if !o.CachedState() || s.store == nil {
		return s.write(ctx, txn, ix, tm)
	}

	c, err := s.store.Get()
	if err != nil {
		return err
	}
	defer func() { s.release(c, err) }()

	pre, err := promoteJournal(c, o)
	if err != nil {
		return err
	}
	if err = s.write(ctx, txn, ix, tm); err != nil {
		return err
	}

	if pre == nil {
		pre = o.Clone()
	}
	pre.SetUint32(object.AttrFlags, object.FlagReturnCode)
	pre.SetUint32(object.AttrReturnCode, uint32(api.OK))
	s.publish(pre)

	switch o.Operation() {
	case object.OpDelete:
		err = c.DeleteObject(o)
	case object.OpCreate, object.OpSet:
		err = c.StoreObject(o)
	}
	return err
}

func (s *Service) write(ctx context.Context, txn *api.Transaction, ix int, tm *callTimer) error {
	k := txn.Change(ix).Key()
	r := s.reg.find(k, api.CapWrite)
	if r == nil {
		return errors.Wrapf(api.ErrNoHandler, "commit %s", k)
	}
	tm.Start()
	return r.handler.(api.Writer).Write(ctx, txn, ix)
}

// promoteJournal removes the journal copy of o from the store. When one
// existed, it returns the pre-commit clone of o and moves o out of the
// journal plane.
func promoteJournal(c *redisdb.Conn, o *object.Object) (*object.Object, error) {
	journal := o.Clone()
	journal.SetQualifier(key.Journal)
	stored, found, err := c.GetObject(journal)
	if err != nil || !found {
		return nil, err
	}
	if err := c.DeleteObject(journal); err != nil {
		return nil, err
	}

	pre := o.Clone()
	if seq, ok := stored.GetUint64(object.AttrJournalSeq); ok {
		pre.SetUint64(object.AttrJournalSeq, seq)
	}
	o.Delete(object.AttrJournalSeq)
	if o.Key().Qualifier == key.Journal {
		o.SetQualifier(key.Target)
	}
	return pre, nil
}

// CommitTransaction commits every change of txn in order. When a change
// fails, already committed changes are reverted in reverse order.
func (s *Service) CommitTransaction(ctx context.Context, txn *api.Transaction) error {
	for ix := 0; ix < txn.Len(); ix++ {
		err := s.Commit(ctx, txn, ix)
		if err == nil {
			continue
		}
		for j := ix - 1; j >= 0; j-- {
			if rerr := s.Revert(ctx, txn, j); rerr != nil {
				s.log.Warnf("reverting change %d of failed transaction: %v", j, rerr)
			}
		}
		return err
	}
	return nil
}

// Revert invokes the rollback handler matching the previous object of
// change ix.
func (s *Service) Revert(ctx context.Context, txn *api.Transaction, ix int) (err error) {
	defer func() {
		s.stats.inc(api.RevertCount, 1)
		if err != nil {
			s.stats.inc(api.RevertFailed, 1)
		}
		reportOperation("revert", err, 0)
	}()

	if ix < 0 || ix >= txn.Len() || txn.Prev(ix) == nil {
		return errors.Errorf("revert: no previous object at index %d", ix)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	k := txn.Prev(ix).Key()
	r := s.reg.find(k, api.CapRollback)
	if r == nil {
		return errors.Wrapf(api.ErrNoHandler, "revert %s", k)
	}
	return r.handler.(api.Rollbacker).Rollback(ctx, txn, ix)
}

// Stats returns all counters as one object.
func (s *Service) Stats() *object.Object {
	return s.stats.object()
}

// StatsSnapshot returns counters for JSON rendering.
func (s *Service) StatsSnapshot() *Stats {
	return s.stats.snapshot()
}

// StageJournal stores a journal copy of o stamped with the next journal
// sequence. It is committed by the handler registered for o's pattern.
func (s *Service) StageJournal(o *object.Object) (*object.Object, error) {
	if s.store == nil {
		return nil, errors.Wrap(api.ErrStoreFailure, "no durable cache")
	}
	j := o.Clone()
	j.SetQualifier(key.Journal)
	j.SetCachedState(true)

	err := s.withConn(func(c *redisdb.Conn) error {
		seq, err := c.NextSequence(JournalSequence)
		if err != nil {
			return err
		}
		j.SetUint64(object.AttrJournalSeq, uint64(seq))
		return c.StoreObject(j)
	})
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (s *Service) publish(o *object.Object) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishObject(o); err != nil {
		s.log.Warnf("publishing event for %s failed: %v", o.Key(), err)
	}
}

func (s *Service) withConn(fn func(c *redisdb.Conn) error) (err error) {
	c, err := s.store.Get()
	if err != nil {
		return err
	}
	defer func() { s.release(c, err) }()
	return fn(c)
}

// release returns c to the store, closing it after a store failure.
func (s *Service) release(c *redisdb.Conn, err error) {
	if api.CodeOf(err) == api.StoreFailure {
		s.store.Remove(c)
		return
	}
	s.store.Put(c)
}
