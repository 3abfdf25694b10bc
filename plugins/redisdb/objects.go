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

	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

// ObjectField is the hash field holding serialized object.
const ObjectField = "object"

// Entry is a stored object together with its persistence key.
type Entry struct {
	Key    []byte
	Object *object.Object
}

// StoreObject writes object under its persistence key and waits for the ack.
func (c *Conn) StoreObject(o *object.Object) error {
	_, err := c.DoOne("HSET", string(o.PersistenceKey()), ObjectField, o.Marshal())
	return storeErr(err, "store object %s", o.Key())
}

// StoreObjects pipelines one write per object with a single flush.
func (c *Conn) StoreObjects(objs []*object.Object) error {
	if len(objs) == 0 {
		return nil
	}
	cmds := make([]Command, 0, len(objs))
	for _, o := range objs {
		cmds = append(cmds, Cmd("HSET", string(o.PersistenceKey()), ObjectField, o.Marshal()))
	}
	_, err := c.Do(cmds...)
	return storeErr(err, "store %d objects", len(objs))
}

// GetObject fetches object stored under persistence key of filter.
func (c *Conn) GetObject(filter *object.Object) (*object.Object, bool, error) {
	return c.GetObjectByKey(filter.PersistenceKey())
}

// GetObjectByKey fetches object stored under persistence key k.
func (c *Conn) GetObjectByKey(k []byte) (*object.Object, bool, error) {
	reply, err := c.DoOne("HGET", string(k), ObjectField)
	if err != nil {
		return nil, false, storeErr(err, "get object")
	}
	if reply == nil {
		return nil, false, nil
	}
	b, err := redis.Bytes(reply, nil)
	if err != nil {
		return nil, false, storeErr(err, "get object %x", k)
	}
	o, err := object.Unmarshal(b)
	if err != nil {
		return nil, false, errors.Wrapf(err, "decoding stored object %x", k)
	}
	return o, true, nil
}

// GetObjects returns every object whose persistence key starts with prefix.
func (c *Conn) GetObjects(prefix []byte) ([]Entry, error) {
	keys, err := c.Keys(prefix)
	if err != nil || len(keys) == 0 {
		return nil, err
	}
	cmds := make([]Command, 0, len(keys))
	for _, k := range keys {
		cmds = append(cmds, Cmd("HGET", string(k), ObjectField))
	}
	replies, err := c.Do(cmds...)
	if err != nil {
		return nil, storeErr(err, "get objects")
	}
	entries := make([]Entry, 0, len(keys))
	for i, r := range replies {
		if r == nil {
			// removed between KEYS and HGET
			continue
		}
		b, err := redis.Bytes(r, nil)
		if err != nil {
			return nil, storeErr(err, "get object %x", keys[i])
		}
		o, err := object.Unmarshal(b)
		if err != nil {
			c.log.Warnf("skipping undecodable object %x: %v", keys[i], err)
			continue
		}
		entries = append(entries, Entry{Key: keys[i], Object: o})
	}
	return entries, nil
}

// Keys lists persistence keys starting with prefix.
func (c *Conn) Keys(prefix []byte) ([][]byte, error) {
	reply, err := c.DoOne("KEYS", GlobPrefix(prefix))
	keys, err := redis.ByteSlices(reply, err)
	if err == redis.ErrNil {
		return nil, nil
	}
	return keys, storeErr(err, "list keys")
}

// DeleteObject removes object stored under persistence key of o.
func (c *Conn) DeleteObject(o *object.Object) error {
	_, err := c.DoOne("DEL", string(o.PersistenceKey()))
	return storeErr(err, "delete object %s", o.Key())
}

// DeleteKeys removes keys in one MULTI/EXEC transaction.
func (c *Conn) DeleteKeys(keys [][]byte) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.Begin(); err != nil {
		return err
	}
	for _, k := range keys {
		if err := c.Queue("DEL", string(k)); err != nil {
			if aerr := c.Abort(); aerr != nil {
				c.log.Warnf("discard failed: %v", aerr)
			}
			return err
		}
	}
	_, err := c.Commit()
	return err
}

// Begin starts grouped-command transaction.
func (c *Conn) Begin() error {
	if _, err := c.DoOne("MULTI"); err != nil {
		return storeErr(err, "multi")
	}
	c.inMulti = true
	return nil
}

// Queue adds command to the transaction started by Begin.
func (c *Conn) Queue(cmd string, args ...interface{}) error {
	reply, err := c.DoOne(cmd, args...)
	if err != nil {
		return storeErr(err, "queue %s", cmd)
	}
	if s, _ := redis.String(reply, nil); s != "QUEUED" {
		return errors.Wrapf(api.ErrStoreFailure, "queue %s: unexpected reply %v", cmd, reply)
	}
	return nil
}

// Commit executes queued commands and returns their replies.
func (c *Conn) Commit() ([]interface{}, error) {
	reply, err := c.DoOne("EXEC")
	c.inMulti = false
	if err != nil {
		return nil, storeErr(err, "exec")
	}
	if reply == nil {
		return nil, errors.Wrap(api.ErrStoreFailure, "transaction aborted")
	}
	replies, err := redis.Values(reply, nil)
	if err != nil {
		return nil, err
	}
	for _, r := range replies {
		if rerr, ok := r.(redis.Error); ok {
			return replies, errors.Wrapf(api.ErrStoreFailure, "exec: %v", rerr)
		}
	}
	return replies, nil
}

// Abort discards queued commands.
func (c *Conn) Abort() error {
	_, err := c.DoOne("DISCARD")
	c.inMulti = false
	return storeErr(err, "discard")
}

// NextSequence increments and returns named counter.
func (c *Conn) NextSequence(name string) (int64, error) {
	n, err := redis.Int64(c.DoOne("INCR", name))
	return n, storeErr(err, "incr %s", name)
}

// GlobPrefix returns KEYS pattern matching every key starting with prefix.
// Glob metacharacters of prefix are escaped.
func GlobPrefix(prefix []byte) string {
	b := make([]byte, 0, len(prefix)+1)
	for _, c := range prefix {
		switch c {
		case '*', '?', '[', ']', '\\':
			b = append(b, '\\')
		}
		b = append(b, c)
	}
	return string(append(b, '*'))
}

func storeErr(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, api.ErrStoreFailure) {
		return errors.Wrapf(err, format, args...)
	}
	return errors.Wrapf(api.WithCode(api.StoreFailure, err), format, args...)
}
