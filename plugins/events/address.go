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

import (
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Channel is one of the logical channels served by the broker.
type Channel int

const (
	// RequestChannel is reserved for future request/reply use and is inert.
	RequestChannel Channel = iota
	// BroadcastChannel delivers events to all subscribers.
	BroadcastChannel
	// IngestionChannel receives events pushed by publishers.
	IngestionChannel

	numChannels
)

func (ch Channel) String() string {
	switch ch {
	case RequestChannel:
		return "request"
	case BroadcastChannel:
		return "broadcast"
	case IngestionChannel:
		return "ingestion"
	}
	return "channel(" + strconv.Itoa(int(ch)) + ")"
}

// Addresses holds endpoint address of every channel.
type Addresses [numChannels]string

// Of returns address of channel ch.
func (a Addresses) Of(ch Channel) string {
	return a[ch]
}

// ExpandAddress derives the three channel endpoints from one base address.
// Networked addresses (tcp://host:port) get port offsets 0, 1 and 2,
// local addresses (ipc://path, inproc://name) get suffixes _0, _1 and _2.
func ExpandAddress(base string) (Addresses, error) {
	var addrs Addresses
	i := strings.Index(base, "://")
	if i <= 0 {
		return addrs, errors.Errorf("invalid event address %q: missing transport", base)
	}
	transport, rest := base[:i], base[i+3:]
	switch transport {
	case "tcp":
		host, port, err := net.SplitHostPort(rest)
		if err != nil {
			return addrs, errors.Wrapf(err, "invalid event address %q", base)
		}
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p+int(numChannels)-1 > 65535 {
			return addrs, errors.Errorf("invalid event port in %q", base)
		}
		for ch := Channel(0); ch < numChannels; ch++ {
			addrs[ch] = "tcp://" + net.JoinHostPort(host, strconv.Itoa(p+int(ch)))
		}
	case "ipc", "inproc":
		if rest == "" {
			return addrs, errors.Errorf("invalid event address %q: empty name", base)
		}
		for ch := Channel(0); ch < numChannels; ch++ {
			addrs[ch] = base + "_" + strconv.Itoa(int(ch))
		}
	default:
		return addrs, errors.Errorf("unsupported event transport %q", transport)
	}
	return addrs, nil
}
