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

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

// Client issues requests over one framed connection. Requests of
// concurrent callers are serialized.
type Client struct {
	mu    sync.Mutex
	conn  net.Conn
	codec *Codec
}

// SplitAddress splits "network://address" into its parts. Address
// without scheme is tcp.
func SplitAddress(s string) (network, address string) {
	if i := strings.Index(s, "://"); i >= 0 {
		return s[:i], s[i+3:]
	}
	return "tcp", s
}

// JoinAddress formats network and address as accepted by SplitAddress.
func JoinAddress(network, address string) string {
	return network + "://" + address
}

// Dial connects to the server at "network://address".
func Dial(ctx context.Context, addr string) (*Client, error) {
	network, address := SplitAddress(addr)
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return NewClient(conn), nil
}

// NewClient returns client over established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, codec: NewCodec(conn)}
}

// Get returns objects matching filter.
func (c *Client) Get(filter *object.Object) ([]*object.Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send(MsgGet, filter); err != nil {
		return nil, err
	}
	var objs []*object.Object
	for {
		t, payload, err := c.codec.ReadFrame()
		if err != nil {
			return nil, err
		}
		switch t {
		case MsgGetResp:
			o, err := decodeRequired(t, payload)
			if err != nil {
				return nil, err
			}
			objs = append(objs, o)
		case MsgGetDone:
			return objs, nil
		case MsgReturnCode:
			return nil, remoteError(payload)
		default:
			return nil, errors.Wrapf(api.ErrProtocolDesync, "unexpected %s reply to GET", t)
		}
	}
}

// Commit commits change with optional previous object and returns the
// committed object and the previous object recorded by the handler.
func (c *Client) Commit(change, prev *object.Object) (current, previous *object.Object, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.codec.WriteObject(MsgCommitChange, change); err != nil {
		return nil, nil, err
	}
	if err := c.send(MsgCommitPrev, prev); err != nil {
		return nil, nil, err
	}

	t, payload, err := c.codec.ReadFrame()
	if err != nil {
		return nil, nil, err
	}
	switch t {
	case MsgReturnCode:
		return nil, nil, remoteError(payload)
	case MsgCommitObject:
	default:
		return nil, nil, errors.Wrapf(api.ErrProtocolDesync, "unexpected %s reply to COMMIT", t)
	}
	if current, err = decodeObject(payload); err != nil {
		return nil, nil, err
	}

	t, payload, err = c.codec.ReadFrame()
	if err != nil {
		return nil, nil, err
	}
	if t != MsgCommitObject {
		return nil, nil, errors.Wrapf(api.ErrProtocolDesync, "unexpected %s reply to COMMIT", t)
	}
	if previous, err = decodeObject(payload); err != nil {
		return nil, nil, err
	}
	return current, previous, nil
}

// Revert asks the rollback handler of prev to restore it.
func (c *Client) Revert(prev *object.Object) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send(MsgRevert, prev); err != nil {
		return err
	}
	t, payload, err := c.codec.ReadFrame()
	if err != nil {
		return err
	}
	if t != MsgReturnCode {
		return errors.Wrapf(api.ErrProtocolDesync, "unexpected %s reply to REVERT", t)
	}
	return remoteError(payload)
}

// Stats returns the server counters object.
func (c *Client) Stats() (*object.Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send(MsgStats, nil); err != nil {
		return nil, err
	}
	t, payload, err := c.codec.ReadFrame()
	if err != nil {
		return nil, err
	}
	if t != MsgStats {
		return nil, errors.Wrapf(api.ErrProtocolDesync, "unexpected %s reply to STATS", t)
	}
	return decodeRequired(t, payload)
}

// SetDeadline bounds all following requests, zero value removes the bound.
func (c *Client) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) send(t MsgType, o *object.Object) error {
	if err := c.codec.WriteObject(t, o); err != nil {
		return err
	}
	return c.codec.Flush()
}

// remoteError converts RETURN_CODE payload to error, nil for OK.
func remoteError(payload []byte) error {
	rc, err := decodeReturnCode(payload)
	if err != nil {
		return err
	}
	if rc == api.OK {
		return nil
	}
	return api.WithCode(rc, errors.Errorf("remote returned %s", rc))
}
