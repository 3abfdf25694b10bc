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
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ligato/cps-agent/pkg/key"
)

const (
	fieldQualifier protowire.Number = 1
	fieldElement   protowire.Number = 2
	fieldOperation protowire.Number = 3
	fieldCached    protowire.Number = 4
	fieldAttr      protowire.Number = 5

	fieldAttrID    protowire.Number = 1
	fieldAttrValue protowire.Number = 2
)

// Marshal encodes object into protobuf wire format.
func (o *Object) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldQualifier, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(o.key.Qualifier))
	for _, e := range o.key.Elements {
		b = protowire.AppendTag(b, fieldElement, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e))
	}
	if o.op != OpNone {
		b = protowire.AppendTag(b, fieldOperation, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(o.op))
	}
	if o.cached {
		b = protowire.AppendTag(b, fieldCached, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	for _, a := range o.attrs {
		var ab []byte
		ab = protowire.AppendTag(ab, fieldAttrID, protowire.VarintType)
		ab = protowire.AppendVarint(ab, uint64(a.ID))
		ab = protowire.AppendTag(ab, fieldAttrValue, protowire.BytesType)
		ab = protowire.AppendBytes(ab, a.Value)
		b = protowire.AppendTag(b, fieldAttr, protowire.BytesType)
		b = protowire.AppendBytes(b, ab)
	}
	return b
}

// Unmarshal decodes object encoded by Marshal.
func Unmarshal(b []byte) (*Object, error) {
	o := &Object{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(protowire.ParseError(n), "object tag")
		}
		b = b[n:]
		switch {
		case typ == protowire.VarintType && num <= fieldCached:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(protowire.ParseError(n), "object field")
			}
			b = b[n:]
			switch num {
			case fieldQualifier:
				o.key.Qualifier = key.Qualifier(v)
			case fieldElement:
				o.key.Elements = append(o.key.Elements, uint32(v))
			case fieldOperation:
				o.op = Operation(v)
			case fieldCached:
				o.cached = v != 0
			}
		case typ == protowire.BytesType && num == fieldAttr:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrap(protowire.ParseError(n), "object attribute")
			}
			b = b[n:]
			a, err := unmarshalAttr(v)
			if err != nil {
				return nil, err
			}
			o.attrs = append(o.attrs, a)
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrap(protowire.ParseError(n), "unknown object field")
			}
			b = b[n:]
		}
	}
	return o, nil
}

func unmarshalAttr(b []byte) (Attr, error) {
	var a Attr
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return a, errors.Wrap(protowire.ParseError(n), "attribute tag")
		}
		b = b[n:]
		switch {
		case num == fieldAttrID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return a, errors.Wrap(protowire.ParseError(n), "attribute id")
			}
			a.ID = AttrID(v)
			b = b[n:]
		case num == fieldAttrValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return a, errors.Wrap(protowire.ParseError(n), "attribute value")
			}
			a.Value = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return a, errors.Wrap(protowire.ParseError(n), "unknown attribute field")
			}
			b = b[n:]
		}
	}
	return a, nil
}
