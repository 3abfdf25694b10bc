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

import "time"

const (
	// by default, live state is reconciled into the durable cache every 6s
	defaultReconcileInterval = 6 * time.Second

	// by default, every live object is re-stored on each pass
	defaultSkipUnchanged = false

	// by default, lost directory connection is retried every second
	defaultDirectoryRetry = time.Second
)

// DefaultConfig returns default operation configuration.
func DefaultConfig() *Config {
	return &Config{
		ReconcileInterval: defaultReconcileInterval,
		SkipUnchanged:     defaultSkipUnchanged,
		DirectoryRetry:    defaultDirectoryRetry,
	}
}

// Config holds the operation service configuration.
type Config struct {
	ReconcileInterval time.Duration `json:"reconcile-interval"` // zero disables the reconciler
	SkipUnchanged     bool          `json:"skip-unchanged"`
	DirectoryRetry    time.Duration `json:"directory-retry"`
}
