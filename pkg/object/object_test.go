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

package object

import (
	"bytes"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/ligato/cps-agent/pkg/key"
)

func newInterface(elem uint32, name string) *Object {
	o := New(key.New(key.Target, 1, 10))
	o.SetOperation(OpSet)
	o.SetCachedState(true)
	o.SetString(AttrID(10), name)
	o.SetUint32(AttrID(77), elem)
	return o
}

func TestPersistenceKeyDeterministic(t *testing.T) {
	g := NewWithT(t)

	a := newInterface(5, "eth0")
	b := newInterface(5, "eth0")
	g.Expect(a.PersistenceKey()).To(Equal(b.PersistenceKey()))

	expected := append(key.New(key.Target, 1, 10).Bytes(), []byte("eth0")...)
	g.Expect(a.PersistenceKey()).To(Equal(expected))

	c := newInterface(5, "eth1")
	g.Expect(c.PersistenceKey()).ToNot(Equal(a.PersistenceKey()))
}

func TestPersistenceKeyHasPatternPrefix(t *testing.T) {
	g := NewWithT(t)

	o := New(key.New(key.Target, 2, 5, 3))
	o.SetUint32(AttrID(3), 42)
	g.Expect(bytes.HasPrefix(o.PersistenceKey(), key.New(key.Target, 2, 5).Bytes())).To(BeTrue())
}

func TestCloneIsDeep(t *testing.T) {
	g := NewWithT(t)

	o := newInterface(5, "eth0")
	c := o.Clone()
	g.Expect(c.Equal(o)).To(BeTrue())

	c.SetQualifier(key.Journal)
	c.SetString(AttrID(10), "eth9")
	v, _ := o.Get(AttrID(10))
	g.Expect(string(v)).To(Equal("eth0"))
	g.Expect(o.Key().Qualifier).To(Equal(key.Target))
}

func TestMarshalUnmarshal(t *testing.T) {
	g := NewWithT(t)

	o := newInterface(7, "loop0")
	o.SetUint64(AttrReturnCode, 3)

	decoded, err := Unmarshal(o.Marshal())
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(decoded.Equal(o)).To(BeTrue())
	rc, ok := decoded.GetUint64(AttrReturnCode)
	g.Expect(ok).To(BeTrue())
	g.Expect(rc).To(Equal(uint64(3)))

	empty, err := Unmarshal(nil)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(empty.Len()).To(BeZero())
}

func TestUnmarshalTruncated(t *testing.T) {
	g := NewWithT(t)

	b := newInterface(1, "x").Marshal()
	_, err := Unmarshal(b[:len(b)-1])
	g.Expect(err).To(HaveOccurred())
}

func TestSetReplacesAndDelete(t *testing.T) {
	g := NewWithT(t)

	o := New(key.New(key.Observed, 1))
	o.SetUint32(AttrID(1), 1)
	o.SetUint32(AttrID(1), 2)
	g.Expect(o.Len()).To(Equal(1))
	v, ok := o.GetUint32(AttrID(1))
	g.Expect(ok).To(BeTrue())
	g.Expect(v).To(Equal(uint32(2)))

	o.Delete(AttrID(1))
	_, ok = o.Get(AttrID(1))
	g.Expect(ok).To(BeFalse())
}
