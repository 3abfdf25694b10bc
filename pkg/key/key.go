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

// Package key implements hierarchical object keys: a qualifier naming the
// plane of the key followed by an ordered list of integer elements.
package key

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Qualifier tags the plane a key belongs to.
type Qualifier uint32

const (
	// Any matches every qualifier when used in a pattern.
	Any Qualifier = iota
	Target
	Observed
	Proposed
	Realtime
	Registration
	Journal
)

var qualifierNames = map[Qualifier]string{
	Any:          "any",
	Target:       "target",
	Observed:     "observed",
	Proposed:     "proposed",
	Realtime:     "realtime",
	Registration: "registration",
	Journal:      "journal",
}

func (q Qualifier) String() string {
	if s, ok := qualifierNames[q]; ok {
		return s
	}
	return "qualifier(" + strconv.FormatUint(uint64(q), 10) + ")"
}

// ParseQualifier converts qualifier name (or number) into Qualifier.
func ParseQualifier(s string) (Qualifier, error) {
	for q, name := range qualifierNames {
		if strings.EqualFold(s, name) {
			return q, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return Any, errors.Errorf("unknown qualifier %q", s)
	}
	return Qualifier(n), nil
}

// ElementSize is the encoded width of the qualifier and each element.
const ElementSize = 4

// Key addresses an object and selects the handler serving it.
type Key struct {
	Qualifier Qualifier
	Elements  []uint32
}

// New returns key with the given qualifier and elements.
func New(q Qualifier, elems ...uint32) Key {
	return Key{Qualifier: q, Elements: append([]uint32(nil), elems...)}
}

// Len returns number of elements.
func (k Key) Len() int {
	return len(k.Elements)
}

// WithQualifier returns copy of k in another plane.
func (k Key) WithQualifier(q Qualifier) Key {
	return New(q, k.Elements...)
}

// Clone returns deep copy of k.
func (k Key) Clone() Key {
	return New(k.Qualifier, k.Elements...)
}

// Equal reports whether both keys have the same qualifier and elements.
func (k Key) Equal(o Key) bool {
	if k.Qualifier != o.Qualifier || len(k.Elements) != len(o.Elements) {
		return false
	}
	for i := range k.Elements {
		if k.Elements[i] != o.Elements[i] {
			return false
		}
	}
	return true
}

// Matches reports whether pattern k selects key. The qualifiers must be
// compatible and elements of k must be a prefix of key's elements.
func (k Key) Matches(key Key) bool {
	if k.Qualifier != Any && key.Qualifier != Any && k.Qualifier != key.Qualifier {
		return false
	}
	if len(k.Elements) > len(key.Elements) {
		return false
	}
	for i, e := range k.Elements {
		if key.Elements[i] != e {
			return false
		}
	}
	return true
}

// Bytes encodes key as qualifier followed by elements, each as fixed
// width big-endian integer. Encoding of a pattern is a byte prefix of
// encoding of every key with the same qualifier it matches.
func (k Key) Bytes() []byte {
	return k.AppendBytes(make([]byte, 0, ElementSize*(len(k.Elements)+1)))
}

// AppendBytes appends encoded key to b.
func (k Key) AppendBytes(b []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(k.Qualifier))
	for _, e := range k.Elements {
		b = binary.BigEndian.AppendUint32(b, e)
	}
	return b
}

// Concrete returns k under every concrete qualifier except skip when k
// is an Any pattern, otherwise k alone. Stored and published keys always
// carry a concrete qualifier, so byte prefix scans of an Any pattern go
// through these.
func (k Key) Concrete(skip ...Qualifier) []Key {
	if k.Qualifier != Any {
		return []Key{k}
	}
	keys := make([]Key, 0, Journal)
next:
	for q := Target; q <= Journal; q++ {
		for _, s := range skip {
			if q == s {
				continue next
			}
		}
		keys = append(keys, k.WithQualifier(q))
	}
	return keys
}

// FromBytes decodes key produced by Bytes.
func FromBytes(b []byte) (Key, error) {
	if len(b) < ElementSize || len(b)%ElementSize != 0 {
		return Key{}, errors.Errorf("invalid key length %d", len(b))
	}
	k := Key{Qualifier: Qualifier(binary.BigEndian.Uint32(b))}
	for off := ElementSize; off < len(b); off += ElementSize {
		k.Elements = append(k.Elements, binary.BigEndian.Uint32(b[off:]))
	}
	return k, nil
}

// String formats key as "qualifier/e1.e2.e3".
func (k Key) String() string {
	var sb strings.Builder
	sb.WriteString(k.Qualifier.String())
	sb.WriteByte('/')
	for i, e := range k.Elements {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.FormatUint(uint64(e), 10))
	}
	return sb.String()
}

// Parse parses key formatted by String. The qualifier part may be omitted,
// in which case Target is assumed.
func Parse(s string) (Key, error) {
	q := Target
	if i := strings.IndexByte(s, '/'); i >= 0 {
		var err error
		if q, err = ParseQualifier(s[:i]); err != nil {
			return Key{}, err
		}
		s = s[i+1:]
	}
	k := Key{Qualifier: q}
	if s == "" {
		return k, nil
	}
	for _, part := range strings.Split(s, ".") {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return Key{}, errors.Wrapf(err, "invalid key element %q", part)
		}
		k.Elements = append(k.Elements, uint32(n))
	}
	return k, nil
}
