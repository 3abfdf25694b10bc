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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

// MsgType identifies a framed message.
type MsgType uint32

const (
	MsgGet MsgType = iota + 1
	MsgGetResp
	MsgGetDone
	MsgCommitChange
	MsgCommitPrev
	MsgCommitObject
	MsgRevert
	MsgReturnCode
	MsgStats
)

var msgNames = map[MsgType]string{
	MsgGet:          "GET",
	MsgGetResp:      "GET_RESP",
	MsgGetDone:      "GET_DONE",
	MsgCommitChange: "COMMIT_CHANGE",
	MsgCommitPrev:   "COMMIT_PREV",
	MsgCommitObject: "COMMIT_OBJECT",
	MsgRevert:       "REVERT",
	MsgReturnCode:   "RETURN_CODE",
	MsgStats:        "STATS",
}

func (t MsgType) String() string {
	if s, ok := msgNames[t]; ok {
		return s
	}
	return fmt.Sprintf("MSG(%d)", uint32(t))
}

const (
	headerSize = 8

	// MaxPayload bounds the payload of one frame.
	MaxPayload = 16 << 20
)

// Codec reads and writes frames of a 4-byte message type and a 4-byte
// payload length, both big endian, followed by the payload. Writes are
// buffered until Flush. Codec is not safe for concurrent use.
type Codec struct {
	r *bufio.Reader
	w *bufio.Writer
}

// NewCodec returns codec over rw.
func NewCodec(rw io.ReadWriter) *Codec {
	return &Codec{
		r: bufio.NewReader(rw),
		w: bufio.NewWriter(rw),
	}
}

// ReadFrame reads one frame. Unknown types and oversized payloads are
// protocol desync errors.
func (c *Codec) ReadFrame() (MsgType, []byte, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(c.r, hdr[:]); err != nil {
		return 0, nil, err
	}
	t := MsgType(binary.BigEndian.Uint32(hdr[:4]))
	n := binary.BigEndian.Uint32(hdr[4:])
	if _, ok := msgNames[t]; !ok {
		return 0, nil, errors.Wrapf(api.ErrProtocolDesync, "unknown message type %d", uint32(t))
	}
	if n > MaxPayload {
		return 0, nil, errors.Wrapf(api.ErrProtocolDesync, "%s payload of %d bytes exceeds limit", t, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		return 0, nil, err
	}
	return t, payload, nil
}

// WriteFrame buffers one frame.
func (c *Codec) WriteFrame(t MsgType, payload []byte) error {
	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(t))
	binary.BigEndian.PutUint32(hdr[4:], uint32(len(payload)))
	if _, err := c.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := c.w.Write(payload)
	return err
}

// WriteObject buffers frame carrying o. Nil object is sent as empty payload.
func (c *Codec) WriteObject(t MsgType, o *object.Object) error {
	if o == nil {
		return c.WriteFrame(t, nil)
	}
	return c.WriteFrame(t, o.Marshal())
}

// WriteReturnCode buffers RETURN_CODE frame.
func (c *Codec) WriteReturnCode(rc api.ReturnCode) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(rc))
	return c.WriteFrame(MsgReturnCode, b[:])
}

// Flush writes buffered frames.
func (c *Codec) Flush() error {
	return c.w.Flush()
}

// decodeObject decodes optional object payload.
func decodeObject(payload []byte) (*object.Object, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	o, err := object.Unmarshal(payload)
	if err != nil {
		return nil, errors.Wrapf(api.ErrProtocolDesync, "undecodable object: %v", err)
	}
	return o, nil
}

// decodeRequired decodes object payload that must be present.
func decodeRequired(t MsgType, payload []byte) (*object.Object, error) {
	o, err := decodeObject(payload)
	if err == nil && o == nil {
		err = errors.Wrapf(api.ErrProtocolDesync, "%s without object", t)
	}
	return o, err
}

func decodeReturnCode(payload []byte) (api.ReturnCode, error) {
	if len(payload) != 4 {
		return 0, errors.Wrapf(api.ErrProtocolDesync, "return code of %d bytes", len(payload))
	}
	return api.ReturnCode(binary.BigEndian.Uint32(payload)), nil
}
