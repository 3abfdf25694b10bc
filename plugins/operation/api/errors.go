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

package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// ReturnCode is the result of an operation as reported to remote callers.
type ReturnCode uint32

const (
	OK ReturnCode = iota
	ERR
	NoHandler
	StoreFailure
	TransportFailure
	ProtocolDesync
	Timeout
)

func (rc ReturnCode) String() string {
	switch rc {
	case OK:
		return "OK"
	case ERR:
		return "ERR"
	case NoHandler:
		return "NO_HANDLER"
	case StoreFailure:
		return "STORE_FAILURE"
	case TransportFailure:
		return "TRANSPORT_FAILURE"
	case ProtocolDesync:
		return "PROTOCOL_DESYNC"
	case Timeout:
		return "TIMEOUT"
	}
	return fmt.Sprintf("RC(%d)", uint32(rc))
}

var (
	// ErrNoHandler is returned when no registration matches the key.
	ErrNoHandler = errors.New("no handler registered for key")

	// ErrStoreFailure is returned when the durable cache exchange failed
	// after all retries.
	ErrStoreFailure = errors.New("store failure")

	// ErrTransportFailure is returned on event transport socket faults.
	ErrTransportFailure = errors.New("transport failure")

	// ErrProtocolDesync is returned when a peer violates request framing.
	ErrProtocolDesync = errors.New("protocol desync")

	// ErrTimeout is returned when waiting for a result timed out.
	ErrTimeout = errors.New("timeout")
)

// ResultError carries an explicit return code. Handlers return it to
// report codes other than ERR.
type ResultError struct {
	Code ReturnCode
	Err  error
}

func (e *ResultError) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Err.Error()
}

func (e *ResultError) Unwrap() error {
	return e.Err
}

// WithCode wraps err with explicit return code.
func WithCode(code ReturnCode, err error) error {
	return &ResultError{Code: code, Err: err}
}

// CodeOf maps error into return code.
func CodeOf(err error) ReturnCode {
	if err == nil {
		return OK
	}
	var re *ResultError
	if errors.As(err, &re) {
		return re.Code
	}
	switch {
	case errors.Is(err, ErrNoHandler):
		return NoHandler
	case errors.Is(err, ErrStoreFailure):
		return StoreFailure
	case errors.Is(err, ErrTransportFailure):
		return TransportFailure
	case errors.Is(err, ErrProtocolDesync):
		return ProtocolDesync
	case errors.Is(err, ErrTimeout):
		return Timeout
	}
	return ERR
}

// ErrorOf converts return code received from a peer back into error.
func ErrorOf(rc ReturnCode) error {
	switch rc {
	case OK:
		return nil
	case NoHandler:
		return ErrNoHandler
	case StoreFailure:
		return ErrStoreFailure
	case TransportFailure:
		return ErrTransportFailure
	case ProtocolDesync:
		return ErrProtocolDesync
	case Timeout:
		return ErrTimeout
	}
	return &ResultError{Code: rc}
}
