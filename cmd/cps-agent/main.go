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

	"github.com/namsral/flag"
	"go.ligato.io/cn-infra/v2/agent"
	"go.ligato.io/cn-infra/v2/logging"
	"go.ligato.io/cn-infra/v2/logging/logrus"

	"github.com/ligato/cps-agent/pkg/debug"
	"github.com/ligato/cps-agent/pkg/version"
)

var (
	logLevel     = flag.String("log-level", "", "Level of all loggers; also set via 'LOG_LEVEL' env variable.")
	printVersion = flag.Bool("version", false, "Print version and exit.")
)

func main() {
	cps := NewCPSAgent()

	// flags of the plugins are registered and parsed here
	a := agent.NewAgent(agent.AllPlugins(cps.Plugins()...))

	if *printVersion {
		fmt.Println(version.Detail())
		return
	}

	log := logrus.DefaultLogger()
	if *logLevel != "" {
		if err := setLevelAll(logging.DefaultRegistry, *logLevel); err != nil {
			log.Fatalf("log level: %v", err)
		}
	}
	log.Infof("starting %s", version.Short())

	if debug.IsEnabled() {
		d, err := debug.Start(debug.ConfigFromEnv(), logging.ForPlugin("debug"))
		if err != nil {
			log.Fatalf("debug server: %v", err)
		}
		defer d.Stop()
	}

	if err := a.Run(); err != nil {
		log.Errorf("agent failed: %v", err)
		return
	}
	log.Info("agent stopped")
}
