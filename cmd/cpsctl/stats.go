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

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/ipc"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

// statEntry is one counter in output order.
type statEntry struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

func newStatsCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show operation counters of the agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var o *object.Object
			err := global.withClient(cmd.Context(), func(c *ipc.Client) (err error) {
				o, err = c.Stats()
				return err
			})
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), global.Format, o)
		},
	}
	return cmd
}

func printStats(w io.Writer, format string, o *object.Object) error {
	values := api.StatsFromObject(o)
	var entries []statEntry
	for _, id := range api.AllStats() {
		if v, ok := values[id.String()]; ok {
			entries = append(entries, statEntry{Name: id.String(), Value: v})
		}
	}
	return formatOutput(w, format, entries, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintln(tw, "COUNTER\tVALUE")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%d\n", e.Name, e.Value)
		}
		return tw.Flush()
	})
}
