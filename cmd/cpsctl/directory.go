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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ligato/cps-agent/pkg/key"
	"github.com/ligato/cps-agent/plugins/directory"
	"github.com/ligato/cps-agent/plugins/operation"
	"github.com/ligato/cps-agent/plugins/restapi/resturl"
)

type directoryEntry struct {
	Pattern string `json:"pattern"`
	Address string `json:"address"`
}

func newLookupCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup [KEY]",
		Short: "Resolve the agent serving a key, or list the process directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := directory.NewClient(&directory.Config{
				Endpoint:    global.Directory,
				Hash:        global.Hash,
				DialTimeout: global.Timeout,
				ReadTimeout: global.Timeout,
			})
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), global.Timeout)
			defer cancel()

			if len(args) == 0 {
				return runDirectoryList(ctx, cmd.OutOrStdout(), global.Format, client)
			}
			k, err := key.Parse(args[0])
			if err != nil {
				return errors.Wrapf(err, "invalid key %q", args[0])
			}
			addr, err := client.Lookup(ctx, k)
			if err != nil {
				return err
			}
			entry := directoryEntry{Pattern: k.String(), Address: addr}
			return formatOutput(cmd.OutOrStdout(), global.Format, entry, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, addr)
				return err
			})
		},
	}
	return cmd
}

func runDirectoryList(ctx context.Context, w io.Writer, format string, client *directory.Client) error {
	entries, err := client.Entries(ctx)
	if err != nil {
		return err
	}
	list := make([]directoryEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, directoryEntry{Pattern: e.Pattern.String(), Address: e.Address})
	}
	return formatOutput(w, format, list, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintln(tw, "PATTERN\tADDRESS")
		for _, e := range list {
			fmt.Fprintf(tw, "%s\t%s\n", e.Pattern, e.Address)
		}
		return tw.Flush()
	})
}

func newRegistrationsCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "registrations",
		Aliases: []string{"regs"},
		Short:   "List the registration table of the agent",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), global.Timeout)
			defer cancel()

			var regs []operation.Registration
			if err := httpGet(ctx, global.HTTP, resturl.Registrations, &regs); err != nil {
				return err
			}
			return formatOutput(cmd.OutOrStdout(), global.Format, regs, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
				fmt.Fprintln(tw, "PATTERN\tCAPABILITIES")
				for _, r := range regs {
					fmt.Fprintf(tw, "%s\t%s\n", r.Pattern, r.Capabilities)
				}
				return tw.Flush()
			})
		},
	}
	return cmd
}

// httpGet decodes JSON response of GET base+path into out.
func httpGet(ctx context.Context, base, path string, out interface{}) error {
	url := strings.TrimSuffix(base, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "HTTP GET request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("HTTP GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
