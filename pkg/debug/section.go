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

package debug

import (
	"os"
	"strings"
)

const envDebug = "CPS_DEBUG"

// IsEnabled checks whether the debug env var is set or not.
func IsEnabled() bool {
	return os.Getenv(envDebug) != ""
}

// Enable sets the debug env var to enable all sections.
func Enable() {
	if IsEnabled() {
		return
	}
	os.Setenv(envDebug, "all")
}

// Disable clears the debug env var.
func Disable() {
	os.Setenv(envDebug, "")
}

// IsEnabledFor returns true if the debug env var names all sections,
// or is set to "all".
func IsEnabledFor(sections ...string) bool {
	env := os.Getenv(envDebug)
	if env == "" {
		return false
	}
	if env == "all" {
		return true
	}
	enabled := strings.Split(env, ",")
	for _, s := range sections {
		found := false
		for _, e := range enabled {
			if strings.TrimSpace(e) == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
