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
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ligato/cps-agent/pkg/object"
	"github.com/ligato/cps-agent/pkg/version"
	"github.com/ligato/cps-agent/plugins/ipc"
	"github.com/ligato/cps-agent/plugins/operation/api"
)

// RootName defines default name used for root command
var RootName = "cpsctl"

type globalOptions struct {
	Address   string
	Events    string
	Directory string
	Hash      string
	HTTP      string
	Timeout   time.Duration
	Format    string
	Debug     bool
}

// NewRootCommand returns new root command.
func NewRootCommand() *cobra.Command {
	var global globalOptions
	cmd := &cobra.Command{
		Use:                   fmt.Sprintf("%s [OPTIONS] COMMAND", RootName),
		Short:                 fmt.Sprintf("%s manages objects of cps agents", RootName),
		Version:               version.Short(),
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
	}

	SetupRootFlags(cmd.PersistentFlags(), &global)

	cmd.AddCommand(
		newGetCommand(&global),
		newCommitCommand(&global, "set", "Set attributes of an object", object.OpSet),
		newCommitCommand(&global, "create", "Create an object", object.OpCreate),
		newCommitCommand(&global, "delete", "Delete an object", object.OpDelete),
		newRevertCommand(&global),
		newStatsCommand(&global),
		newWatchCommand(&global),
		newLookupCommand(&global),
		newRegistrationsCommand(&global),
	)
	return cmd
}

// SetupRootFlags defines global flags, defaults are taken from env.
func SetupRootFlags(flags *pflag.FlagSet, global *globalOptions) {
	flags.StringVarP(&global.Address, "address", "a", envOr("CPS_ADDRESS", "tcp://127.0.0.1:10030"), "Request acceptor of the agent, default from CPS_ADDRESS env var")
	flags.StringVar(&global.Events, "events", envOr("CPS_EVENTS", "tcp://127.0.0.1:10040"), "Base event address, default from CPS_EVENTS env var")
	flags.StringVar(&global.Directory, "directory", envOr("CPS_DIRECTORY", "127.0.0.1:6379"), "Process directory endpoint, default from CPS_DIRECTORY env var")
	flags.StringVar(&global.Hash, "directory-hash", "cps:directory", "Process directory hash")
	flags.StringVar(&global.HTTP, "http", envOr("CPS_HTTP", "http://127.0.0.1:9191"), "HTTP server of the agent, default from CPS_HTTP env var")
	flags.DurationVarP(&global.Timeout, "timeout", "t", 5*time.Second, "Timeout of one request")
	flags.StringVarP(&global.Format, "format", "f", "text", "Output format: text, json or yaml")
	flags.BoolVarP(&global.Debug, "debug", "D", false, "Enable debug mode")
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// withClient dials the agent and runs fn with a connected client.
func (g *globalOptions) withClient(ctx context.Context, fn func(c *ipc.Client) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	c, err := ipc.Dial(ctx, g.Address)
	if err != nil {
		return errors.Wrap(api.ErrTransportFailure, err.Error())
	}
	defer c.Close()
	if dl, ok := ctx.Deadline(); ok {
		if err := c.SetDeadline(dl); err != nil {
			return err
		}
	}
	return fn(c)
}

func (g *globalOptions) debugf(f string, a ...interface{}) {
	if g.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+f+"\n", a...)
	}
}

// ExitCode returns exit status for err: 0 for nil, otherwise 1 plus
// the return code reported by the agent.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1 + int(api.CodeOf(err))
}
