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

package redisdb

import (
	"time"

	"github.com/gomodule/redigo/redis"
)

// Config configures connections to the durable cache.
type Config struct {
	Endpoint     string        `json:"endpoint"`      // host:port of the redis server
	DB           int           `json:"db"`            // database index
	Password     string        `json:"password"`      // password for authentication, if required
	DialTimeout  time.Duration `json:"dial-timeout"`  // timeout for establishing new connections
	ReadTimeout  time.Duration `json:"read-timeout"`  // timeout for socket reads
	WriteTimeout time.Duration `json:"write-timeout"` // timeout for socket writes
	MaxIdle      int           `json:"max-idle"`      // idle connections kept in the pool
}

// DefaultConfig returns default redis configuration.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:     "127.0.0.1:6379",
		DialTimeout:  2 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxIdle:      8,
	}
}

// DialFunc opens a new connection to the server.
type DialFunc func() (redis.Conn, error)

// Dialer returns DialFunc for this configuration.
func (c *Config) Dialer() DialFunc {
	opts := []redis.DialOption{
		redis.DialDatabase(c.DB),
		redis.DialConnectTimeout(c.DialTimeout),
		redis.DialReadTimeout(c.ReadTimeout),
		redis.DialWriteTimeout(c.WriteTimeout),
	}
	if c.Password != "" {
		opts = append(opts, redis.DialPassword(c.Password))
	}
	return func() (redis.Conn, error) {
		return redis.Dial("tcp", c.Endpoint, opts...)
	}
}
