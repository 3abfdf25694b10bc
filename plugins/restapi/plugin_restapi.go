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

// Package restapi serves a read-only HTTP view of the agent: operation
// counters, the registration table, prometheus metrics and version.
package restapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/unrolled/render"
	"go.ligato.io/cn-infra/v2/infra"

	"github.com/ligato/cps-agent/pkg/confload"
	"github.com/ligato/cps-agent/plugins/events"
	"github.com/ligato/cps-agent/plugins/operation"
)

// REST api methods
const (
	GET = http.MethodGet
)

const shutdownTimeout = 5 * time.Second

// Plugin registers Rest Plugin
type Plugin struct {
	Deps

	config    *Config
	router    *mux.Router
	formatter *render.Render
	listener  net.Listener
	server    *http.Server
	done      chan struct{}
}

// Deps represents dependencies of Rest Plugin
type Deps struct {
	infra.PluginDeps
	Operation ServiceProvider
	// Events is optional; broker counters are served when set.
	Events BrokerStatsProvider
}

// ServiceProvider provides the operation service.
type ServiceProvider interface {
	Service() *operation.Service
}

// BrokerStatsProvider provides event broker counters.
type BrokerStatsProvider interface {
	BrokerStats() events.BrokerStats
}

// Init builds the router and binds the listener when enabled.
func (p *Plugin) Init() (err error) {
	p.config = DefaultConfig()
	if _, err = confload.Load(p.Cfg, p.config); err != nil {
		return errors.Wrap(err, "http config")
	}

	p.router = mux.NewRouter()
	p.formatter = render.New(render.Options{
		IndentJSON: true,
	})
	p.registerInfoHandlers()
	p.registerOperationHandlers()
	p.registerTelemetryHandlers()

	if p.config.Address == "" {
		p.Log.Info("http server disabled")
		return nil
	}
	if p.listener, err = net.Listen("tcp", p.config.Address); err != nil {
		return errors.Wrapf(err, "listen %s", p.config.Address)
	}
	return nil
}

// AfterInit starts serving requests.
func (p *Plugin) AfterInit() error {
	if p.listener == nil {
		return nil
	}
	p.server = &http.Server{
		Handler:      p.router,
		ReadTimeout:  p.config.ReadTimeout,
		WriteTimeout: p.config.WriteTimeout,
	}
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		if err := p.server.Serve(p.listener); err != nil && err != http.ErrServerClosed {
			p.Log.Errorf("http server stopped: %v", err)
		}
	}()
	p.Log.Infof("serving http at %s", p.listener.Addr())
	return nil
}

// Close stops the server.
func (p *Plugin) Close() error {
	if p.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := p.server.Shutdown(ctx)
		<-p.done
		return err
	}
	if p.listener != nil {
		return p.listener.Close()
	}
	return nil
}

// Handler returns the router serving all registered paths.
func (p *Plugin) Handler() http.Handler {
	return p.router
}

// Address returns the bound address, empty when disabled.
func (p *Plugin) Address() string {
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

// RegisterHTTPHandler adds handler for path and methods.
func (p *Plugin) RegisterHTTPHandler(path string, handler func(formatter *render.Render) http.HandlerFunc, methods ...string) *mux.Route {
	p.Log.Debugf("registering handler: %s %v", path, methods)
	return p.router.HandleFunc(path, handler(p.formatter)).Methods(methods...)
}
