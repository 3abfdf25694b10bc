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

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"

	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/pkg/object"
)

// objectView is the printable form of an object.
type objectView struct {
	Key       string     `json:"key"`
	Operation string     `json:"operation,omitempty"`
	Cached    bool       `json:"cached,omitempty"`
	Attrs     []attrView `json:"attrs,omitempty"`
}

type attrView struct {
	ID    uint64 `json:"id"`
	Value string `json:"value"`
	Text  string `json:"text,omitempty"`
}

func viewOf(o *object.Object) objectView {
	v := objectView{
		Key:    o.Key().String(),
		Cached: o.CachedState(),
	}
	if op := o.Operation(); op != object.OpNone {
		v.Operation = op.String()
	}
	for _, a := range o.Attrs() {
		av := attrView{ID: uint64(a.ID), Value: hex.EncodeToString(a.Value)}
		if printable(a.Value) {
			av.Text = string(a.Value)
		}
		v.Attrs = append(v.Attrs, av)
	}
	return v
}

func printable(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, r := range string(b) {
		if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// parseObject builds object from key argument and "id=value" attribute
// arguments. Values prefixed with 0x are hex, others are taken verbatim.
func parseObject(keyArg string, attrArgs []string) (*object.Object, error) {
	k, err := key.Parse(keyArg)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid key %q", keyArg)
	}
	o := object.New(k)
	for _, arg := range attrArgs {
		id, val, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, errors.Errorf("invalid attribute %q, expected id=value", arg)
		}
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid attribute id %q", id)
		}
		value := []byte(val)
		if strings.HasPrefix(val, "0x") {
			if value, err = hex.DecodeString(val[2:]); err != nil {
				return nil, errors.Wrapf(err, "invalid hex value of attribute %d", n)
			}
		}
		o.Set(object.AttrID(n), value)
	}
	return o, nil
}

// formatOutput writes data in the requested format.
func formatOutput(w io.Writer, format string, data interface{}, text func(io.Writer) error) error {
	switch strings.ToLower(format) {
	case "json":
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml", "yml":
		b, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case "", "text":
		return text(w)
	}
	return errors.Errorf("unknown format %q", format)
}

func printObjects(w io.Writer, format string, objs []*object.Object) error {
	views := make([]objectView, 0, len(objs))
	for _, o := range objs {
		views = append(views, viewOf(o))
	}
	return formatOutput(w, format, views, func(w io.Writer) error {
		for _, v := range views {
			printObjectText(w, v)
		}
		return nil
	})
}

func printObjectText(w io.Writer, v objectView) {
	fmt.Fprint(w, v.Key)
	if v.Operation != "" {
		fmt.Fprintf(w, " %s", v.Operation)
	}
	if v.Cached {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
	for _, a := range v.Attrs {
		if a.Text != "" {
			fmt.Fprintf(w, "  %d = %s %q\n", a.ID, a.Value, a.Text)
		} else {
			fmt.Fprintf(w, "  %d = %s\n", a.ID, a.Value)
		}
	}
}

func textObject(v objectView) func(io.Writer) error {
	return func(w io.Writer) error {
		printObjectText(w, v)
		return nil
	}
}
