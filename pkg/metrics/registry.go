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

package metrics

import (
	"fmt"
	"sort"
	"sync"
)

var (
	mu                sync.RWMutex
	registeredMetrics = make(map[string]Retriever)
)

// Retriever defines function that returns metrics data
type Retriever func() interface{}

// Register registers retriever under name. Registering the same name
// twice replaces the previous retriever.
func Register(name string, retrieverFunc Retriever) {
	mu.Lock()
	defer mu.Unlock()
	registeredMetrics[name] = retrieverFunc
}

// Unregister removes retriever registered under name.
func Unregister(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(registeredMetrics, name)
}

// Retrieve calls retriever registered under name.
func Retrieve(name string) (interface{}, error) {
	mu.RLock()
	retriever, ok := registeredMetrics[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("metric %v does not have registered retriever", name)
	}
	return retriever(), nil
}

// Names returns sorted names of registered metrics.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registeredMetrics))
	for name := range registeredMetrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
