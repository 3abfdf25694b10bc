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
	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"

	"github.com/ligato/cps-agent/plugins/operation/api"
)

// MaxAttempts is the number of tries of one exchange, each failed try
// is followed by reconnect.
const MaxAttempts = 3

// Command is a single redis command.
type Command struct {
	Name string
	Args []interface{}
}

// Cmd builds a Command.
func Cmd(name string, args ...interface{}) Command {
	return Command{Name: name, Args: args}
}

// Conn is a pipelined connection leased from Pool. A Conn must not be
// used concurrently; every command sent on it must have its reply read
// before the connection is returned to the pool.
type Conn struct {
	dial    DialFunc
	rc      redis.Conn
	pending int
	inMulti bool
	log     logging.Logger
}

func newConn(dial DialFunc, log logging.Logger) (*Conn, error) {
	c := &Conn{dial: dial, log: log}
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Pending returns number of commands whose replies were not read yet.
func (c *Conn) Pending() int {
	return c.pending
}

// Send queues command without flushing it. On failure the connection is
// re-established and the command resent, at most MaxAttempts times.
// Commands queued before a reconnect are lost, Pending is reset.
func (c *Conn) Send(cmd string, args ...interface{}) error {
	var err error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if c.rc == nil {
			if err = c.reconnect(); err != nil {
				continue
			}
		}
		if err = c.rc.Send(cmd, args...); err == nil {
			c.pending++
			return nil
		}
		c.log.Warnf("send of %s failed (attempt %d/%d): %v", cmd, attempt, MaxAttempts, err)
		c.drop()
	}
	return errors.Wrapf(api.ErrStoreFailure, "send %s: %v", cmd, err)
}

// Response flushes queued commands and reads all pending replies. Error
// replies are returned in place of the reply and the first of them is
// returned as error. A transport error leaves the connection broken.
func (c *Conn) Response() ([]interface{}, error) {
	if c.rc == nil {
		return nil, errors.Wrap(api.ErrStoreFailure, "connection is closed")
	}
	if err := c.rc.Flush(); err != nil {
		c.drop()
		return nil, err
	}
	replies := make([]interface{}, 0, c.pending)
	var replyErr error
	for c.pending > 0 {
		r, err := c.rc.Receive()
		if rerr, ok := err.(redis.Error); ok {
			c.pending--
			replies = append(replies, rerr)
			if replyErr == nil {
				replyErr = rerr
			}
			continue
		}
		if err != nil {
			c.drop()
			return replies, err
		}
		c.pending--
		replies = append(replies, r)
	}
	return replies, replyErr
}

// Do sends commands as one pipeline with a single flush and collects one
// reply per command. Transport failures reconnect and resend the whole
// pipeline, at most MaxAttempts times. Replies are not retried when the
// connection is inside MULTI, whose state a reconnect would lose.
func (c *Conn) Do(cmds ...Command) ([]interface{}, error) {
	if c.pending != 0 {
		return nil, errors.Errorf("connection has %d undrained replies", c.pending)
	}
	var err error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if c.rc == nil {
			if c.inMulti {
				err = errors.New("connection lost inside MULTI")
				break
			}
			if err = c.reconnect(); err != nil {
				continue
			}
		}
		var replies []interface{}
		replies, err = c.exchange(cmds)
		if err == nil {
			return replies, nil
		}
		if _, ok := err.(redis.Error); ok {
			return replies, err
		}
		c.log.Warnf("redis exchange failed (attempt %d/%d): %v", attempt, MaxAttempts, err)
		if c.inMulti {
			break
		}
	}
	c.inMulti = false
	return nil, errors.Wrapf(api.ErrStoreFailure, "%v", err)
}

// DoOne runs a single command.
func (c *Conn) DoOne(cmd string, args ...interface{}) (interface{}, error) {
	replies, err := c.Do(Cmd(cmd, args...))
	if len(replies) == 1 {
		if rerr, ok := replies[0].(redis.Error); ok {
			return nil, rerr
		}
		return replies[0], err
	}
	return nil, err
}

func (c *Conn) exchange(cmds []Command) ([]interface{}, error) {
	for _, cmd := range cmds {
		if err := c.rc.Send(cmd.Name, cmd.Args...); err != nil {
			c.drop()
			return nil, err
		}
		c.pending++
	}
	return c.Response()
}

func (c *Conn) reconnect() error {
	if c.rc != nil {
		c.rc.Close()
	}
	c.pending = 0
	rc, err := c.dial()
	if err != nil {
		c.rc = nil
		return err
	}
	c.rc = rc
	return nil
}

func (c *Conn) drop() {
	if c.rc != nil {
		c.rc.Close()
		c.rc = nil
	}
	c.pending = 0
}

func (c *Conn) healthy() bool {
	return c.rc != nil && c.rc.Err() == nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	if c.rc == nil {
		return nil
	}
	err := c.rc.Close()
	c.rc = nil
	c.pending = 0
	return err
}
