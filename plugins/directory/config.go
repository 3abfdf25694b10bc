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

package directory

import (
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// DefaultHash is the redis hash holding pattern to address bindings.
const DefaultHash = "cps:directory"

// Config configures the directory client.
type Config struct {
	Disabled    bool          `json:"disabled"`     // no directory upkeep and no lookups
	Endpoint    string        `json:"endpoint"`     // host:port of the redis node holding the directory
	DB          int           `json:"db"`           // database to be selected after connecting
	Password    string        `json:"password"`     // password for authentication, if required
	DialTimeout time.Duration `json:"dial-timeout"` // timeout for establishing new connections
	ReadTimeout time.Duration `json:"read-timeout"` // timeout for socket reads
	Hash        string        `json:"hash"`         // name of the directory hash
}

// DefaultConfig returns default directory configuration.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:    "127.0.0.1:6379",
		DialTimeout: 2 * time.Second,
		ReadTimeout: time.Second,
		Hash:        DefaultHash,
	}
}

func (c *Config) options() *goredis.Options {
	return &goredis.Options{
		Addr:        c.Endpoint,
		DB:          c.DB,
		Password:    c.Password,
		DialTimeout: c.DialTimeout,
		ReadTimeout: c.ReadTimeout,
		MaxRetries:  -1,
	}
}
