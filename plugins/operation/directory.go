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

package operation

import (
	"context"
	"time"

	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

// advertise registers pattern with the directory while it is reachable.
// Patterns registered while disconnected are advertised on reconnect.
func (s *Service) advertise(ctx context.Context, pattern key.Key) {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	if s.dir == nil || !s.dirUp {
		return
	}
	if err := s.dir.Register(ctx, s.dirAddr, pattern); err != nil {
		s.log.Warnf("advertising %s failed: %v", pattern, err)
		s.disconnected()
	}
}

// SetDirectory replaces the directory and marks it disconnected so the
// next MaintainDirectory advertises every pattern at address.
func (s *Service) SetDirectory(dir Directory, address string) {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	s.dir = dir
	s.dirAddr = address
	s.dirUp = false
}

// MaintainDirectory checks the directory connection. A lost connection
// is marked down, a restored one gets every registered pattern again.
func (s *Service) MaintainDirectory(ctx context.Context) {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	if s.dir == nil {
		return
	}

	if s.dirUp {
		if err := s.dir.Ping(ctx); err != nil {
			s.log.Warnf("directory connection lost: %v", err)
			s.disconnected()
		}
		return
	}

	if err := s.dir.Ping(ctx); err != nil {
		s.log.Debugf("directory still unreachable: %v", err)
		return
	}
	s.mu.RLock()
	patterns := s.reg.patterns(0)
	s.mu.RUnlock()
	for _, p := range patterns {
		if err := s.dir.Register(ctx, s.dirAddr, p); err != nil {
			s.log.Warnf("re-registering %s failed: %v", p, err)
			return
		}
	}
	s.dirUp = true
	s.stats.inc(api.NsConnects, 1)
	reportDirectory(true)
	s.log.Infof("directory connected, advertised %d patterns at %s", len(patterns), s.dirAddr)
}

// RunDirectory keeps the directory registrations alive until ctx is done.
func (s *Service) RunDirectory(ctx context.Context, retry time.Duration) {
	if retry <= 0 {
		retry = defaultDirectoryRetry
	}
	s.MaintainDirectory(ctx)
	ticker := time.NewTicker(retry)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.MaintainDirectory(ctx)
		}
	}
}

// DirectoryConnected reports whether patterns are currently advertised.
func (s *Service) DirectoryConnected() bool {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	return s.dirUp
}

func (s *Service) disconnected() {
	s.dirUp = false
	s.stats.inc(api.NsDisconnects, 1)
	reportDirectory(false)
}
