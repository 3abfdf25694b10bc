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
	"time"
)

// Config configures the HTTP server.
type Config struct {
	// Address is the listen address; empty disables the server.
	Address string `json:"address"`
	// ReadTimeout bounds reading of a whole request.
	ReadTimeout time.Duration `json:"read-timeout"`
	// WriteTimeout bounds writing of a response.
	WriteTimeout time.Duration `json:"write-timeout"`
}

// DefaultConfig returns configuration with the server disabled.
func DefaultConfig() *Config {
	return &Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
