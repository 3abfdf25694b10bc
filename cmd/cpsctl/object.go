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
	"io"

	"github.com/spf13/cobra"

	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/plugins/ipc"
)

func newGetCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get KEY [ID=VALUE...]",
		Short: "Get objects matching key and index attributes",
		Example: `  cpsctl get target/1.10
  cpsctl get observed/1.10 10=port-a`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseObject(args[0], args[1:])
			if err != nil {
				return err
			}
			return runGet(cmd, global, filter)
		},
	}
	return cmd
}

func runGet(cmd *cobra.Command, global *globalOptions, filter *object.Object) error {
	var objs []*object.Object
	err := global.withClient(cmd.Context(), func(c *ipc.Client) (err error) {
		objs, err = c.Get(filter)
		return err
	})
	if err != nil {
		return err
	}
	global.debugf("get %s returned %d objects", filter.Key(), len(objs))
	return printObjects(cmd.OutOrStdout(), global.Format, objs)
}

type commitOptions struct {
	Cached bool
}

func newCommitCommand(global *globalOptions, name, short string, op object.Operation) *cobra.Command {
	var opts commitOptions
	cmd := &cobra.Command{
		Use:   name + " KEY [ID=VALUE...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			change, err := parseObject(args[0], args[1:])
			if err != nil {
				return err
			}
			change.SetOperation(op)
			change.SetCachedState(opts.Cached)
			return runCommit(cmd, global, change)
		},
	}
	cmd.Flags().BoolVar(&opts.Cached, "cached", false, "Mirror the committed object into the durable cache and publish it")
	return cmd
}

type commitResult struct {
	Current  objectView  `json:"current"`
	Previous *objectView `json:"previous,omitempty"`
}

func runCommit(cmd *cobra.Command, global *globalOptions, change *object.Object) error {
	var current, previous *object.Object
	err := global.withClient(cmd.Context(), func(c *ipc.Client) (err error) {
		current, previous, err = c.Commit(change, nil)
		return err
	})
	if err != nil {
		return err
	}
	res := commitResult{Current: viewOf(current)}
	if previous != nil {
		pv := viewOf(previous)
		res.Previous = &pv
	}
	return formatOutput(cmd.OutOrStdout(), global.Format, res, func(w io.Writer) error {
		printObjectText(w, res.Current)
		if res.Previous != nil {
			io.WriteString(w, "previous: ")
			printObjectText(w, *res.Previous)
		}
		return nil
	})
}

func newRevertCommand(global *globalOptions) *cobra.Command {
	var opts commitOptions
	cmd := &cobra.Command{
		Use:   "revert KEY [ID=VALUE...]",
		Short: "Restore an object to the given previous state",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prev, err := parseObject(args[0], args[1:])
			if err != nil {
				return err
			}
			prev.SetOperation(object.OpSet)
			prev.SetCachedState(opts.Cached)
			return global.withClient(cmd.Context(), func(c *ipc.Client) error {
				return c.Revert(prev)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Cached, "cached", false, "Previous state is a cached-state object")
	return cmd
}
