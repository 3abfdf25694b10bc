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

package events

import "time"

// DefaultAddress is the base event address.
const DefaultAddress = "tcp://127.0.0.1:10040"

// Config configures the event service.
type Config struct {
	// Address is the base address the channel endpoints are derived from.
	Address string `json:"address"`
	// Broker runs the broker inside this process.
	Broker bool `json:"broker"`
	// PollTimeout is the period of retrying broker channels that are down.
	PollTimeout time.Duration `json:"poll-timeout"`
	// MaxRetry bounds relay attempts of one message.
	MaxRetry int `json:"max-retry"`
	// SubscriberReconnect enables automatic reconnection of subscribers.
	SubscriberReconnect bool `json:"subscriber-reconnect"`
}

// DefaultConfig returns default event service configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:     DefaultAddress,
		Broker:      true,
		PollTimeout: DefaultPollTimeout,
		MaxRetry:    DefaultMaxRetry,
	}
}
