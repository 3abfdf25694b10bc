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
	"go.ligato.io/cn-infra/v2/infra"

	"github.com/ligato/cps-agent/plugins/directory"
	"github.com/ligato/cps-agent/plugins/events"
	"github.com/ligato/cps-agent/plugins/ipc"
	"github.com/ligato/cps-agent/plugins/operation"
	"github.com/ligato/cps-agent/plugins/redisdb"
	"github.com/ligato/cps-agent/plugins/restapi"
)

// CPSAgent holds the agent plugins in dependency order.
type CPSAgent struct {
	Logs      *LogsPlugin
	Redis     *redisdb.Plugin
	Events    *events.Plugin
	Directory *directory.Plugin
	Operation *operation.Plugin
	IPC       *ipc.Plugin
	RESTAPI   *restapi.Plugin
}

// pluginNames lists config names of all agent plugins.
var pluginNames = []string{"logs", "redis", "events", "directory", "operation", "ipc", "http"}

// NewCPSAgent wires plugins together. The directory plugin switches
// itself off when its config says so.
func NewCPSAgent() *CPSAgent {
	a := &CPSAgent{
		Logs:      NewLogsPlugin(),
		Redis:     redisdb.NewPlugin(),
		Events:    events.NewPlugin(),
		Directory: directory.NewPlugin(),
	}

	a.IPC = ipc.NewPlugin()
	a.Operation = operation.NewPlugin(operation.UseDeps(func(deps *operation.Deps) {
		deps.Redis = a.Redis
		deps.Events = a.Events
		deps.Directory = a.Directory
		deps.AdvertiseAddress = a.IPC.Address
	}))
	a.IPC.Operation = a.Operation

	a.RESTAPI = restapi.NewPlugin(restapi.UseDeps(func(deps *restapi.Deps) {
		deps.Operation = a.Operation
		deps.Events = a.Events
	}))
	return a
}

// Plugins returns plugins in start order.
func (a *CPSAgent) Plugins() []infra.Plugin {
	return []infra.Plugin{
		a.Logs,
		a.Redis,
		a.Events,
		a.Directory,
		a.Operation,
		a.IPC,
		a.RESTAPI,
	}
}
