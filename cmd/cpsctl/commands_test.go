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
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/gomega"

	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/ipc"
	"github.com/ligato/cps-agent/plugins/operation"
	"github.com/ligato/cps-agent/plugins/operation/api"
	"github.com/ligato/cps-agent/plugins/restapi/resturl"
)

// memoryHandler keeps committed objects by key.
type memoryHandler struct {
	mu   sync.Mutex
	objs map[string]*object.Object
}

func (h *memoryHandler) funcs() *api.HandlerFuncs {
	return &api.HandlerFuncs{
		ReadFunc: func(ctx context.Context, filter *object.Object) ([]*object.Object, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			var objs []*object.Object
			for _, o := range h.objs {
				if filter.Key().Matches(o.Key()) {
					objs = append(objs, o.Clone())
				}
			}
			return objs, nil
		},
		WriteFunc: func(ctx context.Context, txn *api.Transaction, ix int) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			change := txn.Change(ix)
			k := change.Key().String()
			if prev, ok := h.objs[k]; ok {
				txn.SetPrev(ix, prev.Clone())
			}
			if change.Operation() == object.OpDelete {
				delete(h.objs, k)
			} else {
				h.objs[k] = change.Clone()
			}
			return nil
		},
	}
}

func startAgent(t *testing.T) string {
	svc := operation.NewService()
	h := &memoryHandler{objs: make(map[string]*object.Object)}
	svc.Register(context.Background(), key.New(key.Target, 1), h.funcs())

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ipc.NewServer(svc, 2, nil).Serve(ctx, l)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ipc.JoinAddress("tcp", l.Addr().String())
}

func execute(args ...string) (string, error) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSetAndGet(t *testing.T) {
	g := NewWithT(t)
	addr := startAgent(t)

	out, err := execute("-a", addr, "set", "target/1.10", "10=port-a")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(out).To(Equal("target/1.10 set\n  10 = 706f72742d61 \"port-a\"\n"))

	out, err = execute("-a", addr, "set", "target/1.10", "10=0x0102")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(out).To(ContainSubstring("previous: target/1.10 set\n"))

	out, err = execute("-a", addr, "-f", "json", "get", "target/1")
	g.Expect(err).ToNot(HaveOccurred())
	var views []objectView
	g.Expect(json.Unmarshal([]byte(out), &views)).To(Succeed())
	g.Expect(views).To(Equal([]objectView{{
		Key:       "target/1.10",
		Operation: "set",
		Attrs:     []attrView{{ID: 10, Value: "0102"}},
	}}))

	_, err = execute("-a", addr, "delete", "target/1.10")
	g.Expect(err).ToNot(HaveOccurred())
	out, err = execute("-a", addr, "get", "target/1")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(out).To(BeEmpty())
}

func TestNoHandler(t *testing.T) {
	g := NewWithT(t)
	addr := startAgent(t)

	_, err := execute("-a", addr, "get", "target/2")
	g.Expect(err).To(HaveOccurred())
	g.Expect(api.CodeOf(err)).To(Equal(api.NoHandler))
	g.Expect(ExitCode(err)).To(Equal(1 + int(api.NoHandler)))
}

func TestRevertWithoutRollback(t *testing.T) {
	g := NewWithT(t)
	addr := startAgent(t)

	_, err := execute("-a", addr, "revert", "target/1.10")
	g.Expect(api.CodeOf(err)).To(Equal(api.NoHandler))
}

func TestStats(t *testing.T) {
	g := NewWithT(t)
	addr := startAgent(t)

	_, err := execute("-a", addr, "get", "target/1")
	g.Expect(err).ToNot(HaveOccurred())

	out, err := execute("-a", addr, "stats")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(out).To(HavePrefix("COUNTER"))
	g.Expect(out).To(MatchRegexp(`GET_COUNT\s+1\n`))
	g.Expect(out).To(MatchRegexp(`SET_COUNT\s+0\n`))

	out, err = execute("-a", addr, "-f", "yaml", "stats")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(out).To(ContainSubstring("- name: GET_COUNT\n  value: 1\n"))
}

func TestDialFailure(t *testing.T) {
	g := NewWithT(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	g.Expect(err).ToNot(HaveOccurred())
	addr := l.Addr().String()
	l.Close()

	_, err = execute("-a", "tcp://"+addr, "stats")
	g.Expect(api.CodeOf(err)).To(Equal(api.TransportFailure))
	g.Expect(ExitCode(err)).To(Equal(1 + int(api.TransportFailure)))
	g.Expect(ExitCode(nil)).To(BeZero())
}

func TestLookup(t *testing.T) {
	g := NewWithT(t)
	mr := miniredis.RunT(t)
	mr.HSet("cps:directory", "target/1", "tcp://10.0.0.1:10030", "target/1.10", "tcp://10.0.0.2:10030")

	out, err := execute("--directory", mr.Addr(), "lookup", "target/1.10.3")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(out).To(Equal("tcp://10.0.0.2:10030\n"))

	out, err = execute("--directory", mr.Addr(), "lookup")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(out).To(MatchRegexp(`target/1\s+tcp://10.0.0.1:10030\n`))
	g.Expect(out).To(MatchRegexp(`target/1.10\s+tcp://10.0.0.2:10030\n`))

	_, err = execute("--directory", mr.Addr(), "lookup", "observed/1")
	g.Expect(err).To(MatchError(ContainSubstring("no directory entry")))
}

func TestRegistrations(t *testing.T) {
	g := NewWithT(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != resturl.Registrations {
			http.NotFound(w, req)
			return
		}
		w.Write([]byte(`[{"pattern":"target/1","capabilities":"read|write"}]`))
	}))
	defer srv.Close()

	out, err := execute("--http", srv.URL, "registrations")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(out).To(MatchRegexp(`target/1\s+read\|write\n`))

	out, err = execute("--http", srv.URL+"/", "-f", "json", "regs")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(out).To(MatchJSON(`[{"pattern":"target/1","capabilities":"read|write"}]`))
}
