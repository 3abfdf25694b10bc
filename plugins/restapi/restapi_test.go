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

package restapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/ligato/cps-agent/pkg/confload"
	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/pkg/metrics"
	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/pkg/version"
	"github.com/ligato/cps-agent/plugins/events"
	"github.com/ligato/cps-agent/plugins/operation"
	"github.com/ligato/cps-agent/plugins/operation/api"
	"github.com/ligato/cps-agent/plugins/restapi/resturl"
)

type serviceProvider struct {
	svc *operation.Service
}

func (p serviceProvider) Service() *operation.Service {
	return p.svc
}

type brokerStats events.BrokerStats

func (s brokerStats) BrokerStats() events.BrokerStats {
	return events.BrokerStats(s)
}

func newTestPlugin(t *testing.T, cfg string) (*Plugin, *operation.Service) {
	svc := operation.NewService()
	p := NewPlugin(UseDeps(func(deps *Deps) {
		deps.Cfg = confload.Inline("http", []byte(cfg))
		deps.Operation = serviceProvider{svc: svc}
		deps.Events = brokerStats{Relayed: 3, Dropped: 1}
	}))
	if err := p.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	if err := p.AfterInit(); err != nil {
		t.Fatal(err)
	}
	return p, svc
}

func get(p *Plugin, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestVersion(t *testing.T) {
	g := NewWithT(t)
	p, _ := newTestPlugin(t, "")

	rec := get(p, resturl.Version)
	g.Expect(rec.Code).To(Equal(http.StatusOK))

	var info version.Info
	g.Expect(json.Unmarshal(rec.Body.Bytes(), &info)).To(Succeed())
	g.Expect(info).To(Equal(version.Get()))
}

func TestStatsAndRegistrations(t *testing.T) {
	g := NewWithT(t)
	p, svc := newTestPlugin(t, "")

	svc.Register(context.Background(), key.New(key.Target, 7), &api.HandlerFuncs{
		ReadFunc: func(ctx context.Context, filter *object.Object) ([]*object.Object, error) {
			return nil, nil
		},
	})
	_, err := svc.Get(context.Background(), object.New(key.New(key.Target, 9)))
	g.Expect(err).To(MatchError(api.ErrNoHandler))

	rec := get(p, resturl.Registrations)
	g.Expect(rec.Code).To(Equal(http.StatusOK))
	var regs []operation.Registration
	g.Expect(json.Unmarshal(rec.Body.Bytes(), &regs)).To(Succeed())
	g.Expect(regs).To(Equal([]operation.Registration{
		{Pattern: "target/7", Capabilities: "read"},
	}))

	rec = get(p, resturl.Stats)
	g.Expect(rec.Code).To(Equal(http.StatusOK))
	var st struct {
		Calls []struct {
			Name   string
			Count  uint64
			Failed uint64
		} `json:"calls"`
	}
	g.Expect(json.Unmarshal(rec.Body.Bytes(), &st)).To(Succeed())
	g.Expect(st.Calls).To(HaveLen(2))
	g.Expect(st.Calls[0].Name).To(Equal("GET"))
	g.Expect(st.Calls[0].Count).To(BeEquivalentTo(1))
	g.Expect(st.Calls[0].Failed).To(BeEquivalentTo(1))
}

func TestBrokerStats(t *testing.T) {
	g := NewWithT(t)
	p, _ := newTestPlugin(t, "")

	rec := get(p, resturl.Broker)
	g.Expect(rec.Code).To(Equal(http.StatusOK))
	var st events.BrokerStats
	g.Expect(json.Unmarshal(rec.Body.Bytes(), &st)).To(Succeed())
	g.Expect(st).To(Equal(events.BrokerStats{Relayed: 3, Dropped: 1}))
}

func TestRetriever(t *testing.T) {
	g := NewWithT(t)
	p, _ := newTestPlugin(t, "")

	metrics.Register("restapi-test", func() interface{} {
		return map[string]int{"hits": 4}
	})
	defer metrics.Unregister("restapi-test")

	rec := get(p, "/cps/metrics/restapi-test")
	g.Expect(rec.Code).To(Equal(http.StatusOK))
	g.Expect(rec.Body.String()).To(MatchJSON(`{"hits": 4}`))

	rec = get(p, "/cps/metrics/unknown")
	g.Expect(rec.Code).To(Equal(http.StatusNotFound))
	g.Expect(rec.Body.String()).To(ContainSubstring("does not have registered retriever"))
}

func TestPrometheusMetrics(t *testing.T) {
	g := NewWithT(t)
	p, svc := newTestPlugin(t, "")

	_, _ = svc.Get(context.Background(), object.New(key.New(key.Target, 1)))

	rec := get(p, resturl.Metrics)
	g.Expect(rec.Code).To(Equal(http.StatusOK))
	g.Expect(rec.Body.String()).To(ContainSubstring("cps_operation_processed_total"))
}

func TestMethodNotAllowed(t *testing.T) {
	g := NewWithT(t)
	p, _ := newTestPlugin(t, "")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, resturl.Stats, nil))
	g.Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
}

func TestServeOnAddress(t *testing.T) {
	g := NewWithT(t)
	p, _ := newTestPlugin(t, "address: 127.0.0.1:0\n")

	g.Expect(p.Address()).ToNot(BeEmpty())
	resp, err := http.Get("http://" + p.Address() + resturl.Version)
	g.Expect(err).ToNot(HaveOccurred())
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(resp.StatusCode).To(Equal(http.StatusOK))
	g.Expect(string(body)).To(ContainSubstring(`"app": "cps-agent"`))
}

func TestDisabledByDefault(t *testing.T) {
	g := NewWithT(t)
	p, _ := newTestPlugin(t, "")

	g.Expect(p.Address()).To(BeEmpty())
	g.Expect(p.Close()).To(Succeed())
}
