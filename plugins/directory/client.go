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

// Package directory implements the directory service client used to
// advertise which process serves a key pattern and to resolve the owner
// of a key.
package directory

import (
	"context"
	"sort"

	goredis "github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/ligato/cps-agent/pkg/key"
)

// ErrNotFound is returned by Lookup when no pattern matches the key.
var ErrNotFound = errors.New("no directory entry for key")

// ErrDisabled is returned by a plugin whose directory is switched off.
var ErrDisabled = errors.New("directory disabled")

// Entry binds a key pattern to the address serving it.
type Entry struct {
	Pattern key.Key
	Address string
}

// Client is a directory stored in one redis hash. Fields are patterns in
// their string form, values are addresses.
type Client struct {
	rdb  *goredis.Client
	hash string
}

// NewClient returns client for the directory configured by cfg. The
// connection is established lazily.
func NewClient(cfg *Config) *Client {
	hash := cfg.Hash
	if hash == "" {
		hash = DefaultHash
	}
	return &Client{
		rdb:  goredis.NewClient(cfg.options()),
		hash: hash,
	}
}

// Register advertises pattern as served at address.
func (c *Client) Register(ctx context.Context, address string, pattern key.Key) error {
	err := c.rdb.HSet(ctx, c.hash, pattern.String(), address).Err()
	return errors.Wrapf(err, "register %s", pattern)
}

// Ping checks the directory connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Entries returns every directory entry sorted by pattern. Fields that
// do not parse as patterns are skipped.
func (c *Client) Entries(ctx context.Context) ([]Entry, error) {
	all, err := c.rdb.HGetAll(ctx, c.hash).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list directory")
	}
	entries := make([]Entry, 0, len(all))
	for field, addr := range all {
		p, err := key.Parse(field)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Pattern: p, Address: addr})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Pattern.String() < entries[j].Pattern.String()
	})
	return entries, nil
}

// Lookup returns the address serving k: the entry with the longest
// pattern matching k.
func (c *Client) Lookup(ctx context.Context, k key.Key) (string, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return "", err
	}
	best := -1
	for i, e := range entries {
		if !e.Pattern.Matches(k) {
			continue
		}
		if best < 0 || e.Pattern.Len() > entries[best].Pattern.Len() {
			best = i
		}
	}
	if best < 0 {
		return "", errors.Wrapf(ErrNotFound, "%s", k)
	}
	return entries[best].Address, nil
}

// Close closes the client connections.
func (c *Client) Close() error {
	return c.rdb.Close()
}
