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

package resturl

// Info
const (
	// Version is a path for retrieving information about version of Agent.
	Version = "/info/version"
)

// Operation service
const (
	// Stats is a path for retrieving operation counters and call timings.
	Stats = "/cps/stats"
	// Registrations is a path for retrieving the registration table.
	Registrations = "/cps/registrations"
	// Retriever is a path for retrieving metrics registered under a name.
	Retriever = "/cps/metrics/{name}"
	// Broker is a path for retrieving event broker counters.
	Broker = "/cps/broker"
)

// Telemetry
const (
	// Metrics is a path for prometheus scraping.
	Metrics = "/metrics"
)
