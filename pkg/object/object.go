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

// Package object implements the attribute bag exchanged between agents,
// stored in the durable cache and carried by change events.
package object

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/ligato/cps-agent/pkg/key"
)

// Operation is the kind of change an object describes.
type Operation uint32

const (
	OpNone Operation = iota
	OpCreate
	OpSet
	OpDelete
	OpAction
)

func (op Operation) String() string {
	switch op {
	case OpNone:
		return "none"
	case OpCreate:
		return "create"
	case OpSet:
		return "set"
	case OpDelete:
		return "delete"
	case OpAction:
		return "action"
	}
	return fmt.Sprintf("operation(%d)", uint32(op))
}

// AttrID identifies an attribute. IDs equal to a key element carry the
// instance value of that element (index attributes).
type AttrID uint64

// Reserved attribute IDs, outside of the key element range.
const (
	reservedBase AttrID = 1 << 32

	// AttrFlags carries object flags of a completed transaction event.
	AttrFlags = reservedBase + iota
	// AttrReturnCode carries the result of a completed transaction.
	AttrReturnCode
	// AttrJournalSeq carries the journal sequence of a pending commit.
	AttrJournalSeq
)

// Flags stored in AttrFlags.
const (
	FlagReturnCode uint32 = 1 << iota
)

// Attr is a single attribute of an object.
type Attr struct {
	ID    AttrID
	Value []byte
}

// Object is a keyed bag of attributes.
type Object struct {
	key    key.Key
	op     Operation
	cached bool
	attrs  []Attr
}

// New returns empty object addressed by k.
func New(k key.Key) *Object {
	return &Object{key: k.Clone()}
}

// Key returns object key.
func (o *Object) Key() key.Key {
	return o.key
}

// SetKey replaces object key.
func (o *Object) SetKey(k key.Key) {
	o.key = k.Clone()
}

// SetQualifier moves the object into another plane.
func (o *Object) SetQualifier(q key.Qualifier) {
	o.key.Qualifier = q
}

// Operation returns the change type.
func (o *Object) Operation() Operation {
	return o.op
}

// SetOperation sets the change type.
func (o *Object) SetOperation(op Operation) {
	o.op = op
}

// CachedState reports whether commits of this object are mirrored into
// the durable cache and announced as events.
func (o *Object) CachedState() bool {
	return o.cached
}

// SetCachedState marks object as cached-state.
func (o *Object) SetCachedState(cached bool) {
	o.cached = cached
}

// Set stores a copy of value under id, replacing previous value.
func (o *Object) Set(id AttrID, value []byte) {
	v := append([]byte(nil), value...)
	for i := range o.attrs {
		if o.attrs[i].ID == id {
			o.attrs[i].Value = v
			return
		}
	}
	o.attrs = append(o.attrs, Attr{ID: id, Value: v})
}

// SetUint32 stores big-endian encoded value.
func (o *Object) SetUint32(id AttrID, v uint32) {
	o.Set(id, binary.BigEndian.AppendUint32(nil, v))
}

// SetUint64 stores big-endian encoded value.
func (o *Object) SetUint64(id AttrID, v uint64) {
	o.Set(id, binary.BigEndian.AppendUint64(nil, v))
}

// SetString stores string value.
func (o *Object) SetString(id AttrID, s string) {
	o.Set(id, []byte(s))
}

// Get returns value of attribute id.
func (o *Object) Get(id AttrID) ([]byte, bool) {
	for _, a := range o.attrs {
		if a.ID == id {
			return a.Value, true
		}
	}
	return nil, false
}

// GetUint32 returns value of a 4-byte attribute.
func (o *Object) GetUint32(id AttrID) (uint32, bool) {
	v, ok := o.Get(id)
	if !ok || len(v) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(v), true
}

// GetUint64 returns value of an 8-byte attribute.
func (o *Object) GetUint64(id AttrID) (uint64, bool) {
	v, ok := o.Get(id)
	if !ok || len(v) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(v), true
}

// Delete removes attribute id.
func (o *Object) Delete(id AttrID) {
	for i := range o.attrs {
		if o.attrs[i].ID == id {
			o.attrs = append(o.attrs[:i], o.attrs[i+1:]...)
			return
		}
	}
}

// Attrs returns attributes in insertion order. The slice must not be modified.
func (o *Object) Attrs() []Attr {
	return o.attrs
}

// Len returns number of attributes.
func (o *Object) Len() int {
	return len(o.attrs)
}

// Clone returns deep copy of o.
func (o *Object) Clone() *Object {
	c := &Object{
		key:    o.key.Clone(),
		op:     o.op,
		cached: o.cached,
		attrs:  make([]Attr, len(o.attrs)),
	}
	for i, a := range o.attrs {
		c.attrs[i] = Attr{ID: a.ID, Value: append([]byte(nil), a.Value...)}
	}
	return c
}

// Equal compares key, operation, flags and attribute set of both objects.
// Attribute order is ignored.
func (o *Object) Equal(other *Object) bool {
	if !o.key.Equal(other.key) || o.op != other.op || o.cached != other.cached {
		return false
	}
	if len(o.attrs) != len(other.attrs) {
		return false
	}
	a, b := sortedAttrs(o.attrs), sortedAttrs(other.attrs)
	for i := range a {
		if a[i].ID != b[i].ID || !bytes.Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

func sortedAttrs(attrs []Attr) []Attr {
	s := append([]Attr(nil), attrs...)
	sort.Slice(s, func(i, j int) bool { return s[i].ID < s[j].ID })
	return s
}

// IndexValues returns values of the attributes whose IDs equal the key
// elements, in key order. Elements without such attribute are skipped.
func (o *Object) IndexValues() [][]byte {
	var vals [][]byte
	for _, e := range o.key.Elements {
		if v, ok := o.Get(AttrID(e)); ok {
			vals = append(vals, v)
		}
	}
	return vals
}

// PersistenceKey returns the durable cache key of the object: encoded key
// followed by the index attribute values. Structurally equal objects
// always produce equal persistence keys.
func (o *Object) PersistenceKey() []byte {
	b := o.key.Bytes()
	for _, v := range o.IndexValues() {
		b = append(b, v...)
	}
	return b
}

func (o *Object) String() string {
	return fmt.Sprintf("%s op=%s cached=%t attrs=%d", o.key, o.op, o.cached, len(o.attrs))
}
