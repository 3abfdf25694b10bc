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

// Package api defines the contract between the operation router and the
// object handlers registered for key patterns.
package api

import (
	"context"
	"strings"

	"github.com/ligato/cps-agent/pkg/object"
)

// Capability is a set of operations a handler serves.
type Capability uint8

const (
	CapRead Capability = 1 << iota
	CapWrite
	CapRollback
)

// Has reports whether c includes all of other.
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

func (c Capability) String() string {
	var caps []string
	if c.Has(CapRead) {
		caps = append(caps, "read")
	}
	if c.Has(CapWrite) {
		caps = append(caps, "write")
	}
	if c.Has(CapRollback) {
		caps = append(caps, "rollback")
	}
	if len(caps) == 0 {
		return "none"
	}
	return strings.Join(caps, "|")
}

// Handler serves objects under one key pattern. Capabilities tells the
// router which of Reader, Writer and Rollbacker the handler implements.
type Handler interface {
	Capabilities() Capability
}

// Reader returns objects matching the filter.
type Reader interface {
	Read(ctx context.Context, filter *object.Object) ([]*object.Object, error)
}

// Writer applies change at index ix of the transaction. It may record the
// pre-image of the object with txn.SetPrev.
type Writer interface {
	Write(ctx context.Context, txn *Transaction, ix int) error
}

// Rollbacker restores pre-image at index ix of the transaction.
type Rollbacker interface {
	Rollback(ctx context.Context, txn *Transaction, ix int) error
}

// HandlerFuncs adapts plain functions to Handler. Nil functions are
// capabilities the handler does not have.
type HandlerFuncs struct {
	ReadFunc     func(ctx context.Context, filter *object.Object) ([]*object.Object, error)
	WriteFunc    func(ctx context.Context, txn *Transaction, ix int) error
	RollbackFunc func(ctx context.Context, txn *Transaction, ix int) error
}

// Capabilities implements Handler.
func (h *HandlerFuncs) Capabilities() Capability {
	var c Capability
	if h.ReadFunc != nil {
		c |= CapRead
	}
	if h.WriteFunc != nil {
		c |= CapWrite
	}
	if h.RollbackFunc != nil {
		c |= CapRollback
	}
	return c
}

// Read implements Reader.
func (h *HandlerFuncs) Read(ctx context.Context, filter *object.Object) ([]*object.Object, error) {
	return h.ReadFunc(ctx, filter)
}

// Write implements Writer.
func (h *HandlerFuncs) Write(ctx context.Context, txn *Transaction, ix int) error {
	return h.WriteFunc(ctx, txn, ix)
}

// Rollback implements Rollbacker.
func (h *HandlerFuncs) Rollback(ctx context.Context, txn *Transaction, ix int) error {
	return h.RollbackFunc(ctx, txn, ix)
}

// Transaction is an ordered list of changes with parallel pre-images.
// Atomicity is per handler call only.
type Transaction struct {
	changes []*object.Object
	prev    []*object.Object
}

// NewTransaction returns transaction with the given changes.
func NewTransaction(changes ...*object.Object) *Transaction {
	return &Transaction{
		changes: changes,
		prev:    make([]*object.Object, len(changes)),
	}
}

// Len returns number of changes.
func (t *Transaction) Len() int {
	return len(t.changes)
}

// Change returns change at index ix.
func (t *Transaction) Change(ix int) *object.Object {
	return t.changes[ix]
}

// Prev returns pre-image at index ix, nil if none was recorded.
func (t *Transaction) Prev(ix int) *object.Object {
	return t.prev[ix]
}

// SetPrev records pre-image of change ix.
func (t *Transaction) SetPrev(ix int, o *object.Object) {
	t.prev[ix] = o
}

// Append adds change with its (possibly nil) pre-image and returns its index.
func (t *Transaction) Append(change, prev *object.Object) int {
	t.changes = append(t.changes, change)
	t.prev = append(t.prev, prev)
	return len(t.changes) - 1
}
