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

package ipc

// Config configures the request acceptor.
type Config struct {
	Network string `json:"network"` // tcp or unix
	Address string `json:"address"` // listen address
	Workers int    `json:"workers"` // requests dispatched in parallel
}

// DefaultConfig returns default acceptor configuration.
func DefaultConfig() *Config {
	return &Config{
		Network: "tcp",
		Address: "127.0.0.1:10030",
		Workers: 4,
	}
}
