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
	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/pkg/object"
)

// StatsElement is the key element of the statistics object.
const StatsElement uint32 = 0xFFFF0001

// StatsKey is the key of the object returned by STATS.
func StatsKey() key.Key {
	return key.New(key.Observed, StatsElement)
}

// StatID identifies a statistics counter. Counter values are attributes
// of the statistics object with AttrID equal to StatID.
type StatID uint32

const (
	GetMinTime StatID = iota + 1
	GetMaxTime
	GetAveTime
	GetCount
	GetFailed
	SetMinTime
	SetMaxTime
	SetAveTime
	SetCount
	SetFailed
	RevertCount
	RevertFailed
	NsConnects
	NsDisconnects
	ReconcileCount
	ReconcileDeleted
)

var statNames = map[StatID]string{
	GetMinTime:       "GET_MIN_TIME",
	GetMaxTime:       "GET_MAX_TIME",
	GetAveTime:       "GET_AVE_TIME",
	GetCount:         "GET_COUNT",
	GetFailed:        "GET_FAILED",
	SetMinTime:       "SET_MIN_TIME",
	SetMaxTime:       "SET_MAX_TIME",
	SetAveTime:       "SET_AVE_TIME",
	SetCount:         "SET_COUNT",
	SetFailed:        "SET_FAILED",
	RevertCount:      "REVERT_COUNT",
	RevertFailed:     "REVERT_FAILED",
	NsConnects:       "NS_CONNECTS",
	NsDisconnects:    "NS_DISCONNECTS",
	ReconcileCount:   "RECONCILE_COUNT",
	ReconcileDeleted: "RECONCILE_DELETED",
}

func (id StatID) String() string {
	if s, ok := statNames[id]; ok {
		return s
	}
	return "STAT_UNKNOWN"
}

// AllStats lists every counter in id order.
func AllStats() []StatID {
	ids := make([]StatID, 0, len(statNames))
	for id := GetMinTime; id <= ReconcileDeleted; id++ {
		ids = append(ids, id)
	}
	return ids
}

// StatsFromObject extracts counter values from a statistics object.
func StatsFromObject(o *object.Object) map[string]uint64 {
	stats := make(map[string]uint64)
	for _, id := range AllStats() {
		if v, ok := o.GetUint64(object.AttrID(id)); ok {
			stats[id.String()] = v
		}
	}
	return stats
}
