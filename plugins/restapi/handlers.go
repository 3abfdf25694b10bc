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
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/render"

	"github.com/ligato/cps-agent/pkg/metrics"
	"github.com/ligato/cps-agent/pkg/version"
	"github.com/ligato/cps-agent/plugins/restapi/resturl"
)

const internalErrorLogPrefix = "500 Internal server error: "

// errorResponse is the JSON body of a failed request.
type errorResponse struct {
	Error string `json:"error"`
}

func (p *Plugin) registerInfoHandlers() {
	p.RegisterHTTPHandler(resturl.Version, p.versionHandler, GET)
}

func (p *Plugin) registerOperationHandlers() {
	if p.Operation == nil {
		p.Log.Warn("operation service not available, skipping its handlers")
	} else {
		p.registerHTTPHandler(resturl.Stats, GET, func() (interface{}, error) {
			return p.Operation.Service().StatsSnapshot(), nil
		})
		p.registerHTTPHandler(resturl.Registrations, GET, func() (interface{}, error) {
			return p.Operation.Service().Registrations(), nil
		})
	}
	if p.Events != nil {
		p.registerHTTPHandler(resturl.Broker, GET, func() (interface{}, error) {
			return p.Events.BrokerStats(), nil
		})
	}
	p.RegisterHTTPHandler(resturl.Retriever, p.retrieverHandler, GET)
}

func (p *Plugin) registerTelemetryHandlers() {
	p.router.Handle(resturl.Metrics, promhttp.Handler()).Methods(GET)
}

// registerHTTPHandler is common register method for all handlers
func (p *Plugin) registerHTTPHandler(key, method string, f func() (interface{}, error)) {
	handlerFunc := func(formatter *render.Render) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			res, err := f()
			if err != nil {
				errMsg := errorResponse{Error: err.Error()}
				p.Log.Error(internalErrorLogPrefix + errMsg.Error)
				p.logError(formatter.JSON(w, http.StatusInternalServerError, errMsg))
				return
			}
			p.logError(formatter.JSON(w, http.StatusOK, res))
		}
	}
	p.RegisterHTTPHandler(key, handlerFunc, method)
}

// retrieverHandler serves metrics of the retriever named in the path.
func (p *Plugin) retrieverHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		name := mux.Vars(req)["name"]
		res, err := metrics.Retrieve(name)
		if err != nil {
			p.logError(formatter.JSON(w, http.StatusNotFound, errorResponse{Error: err.Error()}))
			return
		}
		p.logError(formatter.JSON(w, http.StatusOK, res))
	}
}

// versionHandler returns version of Agent.
func (p *Plugin) versionHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		p.logError(formatter.JSON(w, http.StatusOK, version.Get()))
	}
}

func (p *Plugin) logError(err error) {
	if err != nil {
		p.Log.Error(err)
	}
}
