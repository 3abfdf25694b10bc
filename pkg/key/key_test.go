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

package key

import (
	"bytes"
	"testing"

	. "github.com/onsi/gomega"
)

func TestMatches(t *testing.T) {
	g := NewWithT(t)

	k := New(Target, 1, 10, 5)

	g.Expect(New(Target, 1, 10).Matches(k)).To(BeTrue())
	g.Expect(New(Target).Matches(k)).To(BeTrue())
	g.Expect(New(Any, 1).Matches(k)).To(BeTrue())
	g.Expect(New(Target, 1, 10, 5).Matches(k)).To(BeTrue())

	g.Expect(New(Target, 1, 11).Matches(k)).To(BeFalse())
	g.Expect(New(Observed, 1, 10).Matches(k)).To(BeFalse())
	g.Expect(New(Target, 1, 10, 5, 7).Matches(k)).To(BeFalse())
}

func TestBytesPrefix(t *testing.T) {
	g := NewWithT(t)

	pattern := New(Target, 1, 10)
	k := New(Target, 1, 10, 5)
	g.Expect(bytes.HasPrefix(k.Bytes(), pattern.Bytes())).To(BeTrue())
	g.Expect(bytes.HasPrefix(New(Target, 1, 100).Bytes(), New(Target, 1, 10).Bytes())).To(BeFalse())

	decoded, err := FromBytes(k.Bytes())
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(decoded.Equal(k)).To(BeTrue())

	_, err = FromBytes([]byte{1, 2, 3})
	g.Expect(err).To(HaveOccurred())
}

func TestParseString(t *testing.T) {
	g := NewWithT(t)

	k, err := Parse("journal/1.10.5")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(k).To(Equal(New(Journal, 1, 10, 5)))
	g.Expect(k.String()).To(Equal("journal/1.10.5"))

	k, err = Parse("2.5")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(k).To(Equal(New(Target, 2, 5)))

	_, err = Parse("bogus/1")
	g.Expect(err).To(HaveOccurred())
	_, err = Parse("target/1.x")
	g.Expect(err).To(HaveOccurred())
}

func TestWithQualifierCopies(t *testing.T) {
	g := NewWithT(t)

	k := New(Journal, 3, 4)
	promoted := k.WithQualifier(Target)
	promoted.Elements[0] = 9
	g.Expect(k.Elements).To(Equal([]uint32{3, 4}))
	g.Expect(promoted.Qualifier).To(Equal(Target))
}

func TestConcrete(t *testing.T) {
	g := NewWithT(t)

	k := New(Target, 2, 5)
	g.Expect(k.Concrete()).To(Equal([]Key{k}))
	g.Expect(k.Concrete(Target)).To(Equal([]Key{k}))

	all := New(Any, 2, 5).Concrete()
	g.Expect(all).To(HaveLen(6))
	for _, c := range all {
		g.Expect(c.Qualifier).ToNot(Equal(Any))
		g.Expect(c.Elements).To(Equal([]uint32{2, 5}))
		g.Expect(New(Any, 2, 5).Matches(c)).To(BeTrue())
	}

	live := New(Any, 2, 5).Concrete(Journal)
	g.Expect(live).To(HaveLen(5))
	g.Expect(live).ToNot(ContainElement(New(Journal, 2, 5)))
	g.Expect(live[0].Bytes()).To(Equal(New(Target, 2, 5).Bytes()))
}
