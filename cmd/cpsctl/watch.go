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
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/plugins/events"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

// receiveStep bounds one receive so that cancellation is noticed.
const receiveStep = time.Second

type watchOptions struct {
	Count int
	Wait  time.Duration
}

func newWatchCommand(global *globalOptions) *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch KEY-PREFIX",
		Short: "Print events of objects matching key prefix",
		Example: `  cpsctl watch target/1
  cpsctl watch observed --count 1 --wait 10s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, err := key.Parse(args[0])
			if err != nil {
				return errors.Wrapf(err, "invalid key %q", args[0])
			}
			return runWatch(cmd, global, prefix, opts)
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&opts.Count, "count", "n", 0, "Stop after this many events, 0 means no limit")
	flags.DurationVarP(&opts.Wait, "wait", "w", 0, "Stop after this long, 0 means wait until interrupted")
	return cmd
}

func runWatch(cmd *cobra.Command, global *globalOptions, prefix key.Key, opts watchOptions) error {
	addrs, err := events.ExpandAddress(global.Events)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pool := events.NewSocketPool(events.NewZMQFactory(ctx))
	defer pool.Close()

	sub, err := events.NewSubscriber(pool, addrs.Of(events.BroadcastChannel), events.WithAutoReconnect(true))
	if err != nil {
		return err
	}
	defer sub.Close()
	if err := sub.SubscribeKey(prefix); err != nil {
		return err
	}
	global.debugf("watching %s at %s", prefix, addrs.Of(events.BroadcastChannel))
	return watchEvents(ctx, cmd, global.Format, sub, opts)
}

func watchEvents(ctx context.Context, cmd *cobra.Command, format string, sub *events.Subscriber, opts watchOptions) error {
	var deadline time.Time
	if opts.Wait > 0 {
		deadline = time.Now().Add(opts.Wait)
	}
	received := 0
	for opts.Count == 0 || received < opts.Count {
		if ctx.Err() != nil {
			return nil
		}
		step := receiveStep
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				break
			}
			if left < step {
				step = left
			}
		}
		o, err := sub.ReceiveObject(step)
		if errors.Is(err, api.ErrTimeout) {
			continue
		}
		if err != nil {
			return err
		}
		if err := formatOutput(cmd.OutOrStdout(), format, viewOf(o), textObject(viewOf(o))); err != nil {
			return err
		}
		received++
	}
	if received == 0 {
		return errors.Wrapf(api.ErrTimeout, "no event within %v", opts.Wait)
	}
	return nil
}
