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
	"github.com/pkg/errors"
	lg "github.com/sirupsen/logrus"
	"go.ligato.io/cn-infra/v2/config"
	"go.ligato.io/cn-infra/v2/infra"
	"go.ligato.io/cn-infra/v2/logging"

	"github.com/ligato/cps-agent/pkg/confload"
)

// LogConfig sets logger levels at startup.
type LogConfig struct {
	DefaultLevel string         `json:"default-level"`
	Loggers      []LoggerConfig `json:"loggers"`
}

// LoggerConfig is the level of one named logger.
type LoggerConfig struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// LogsPlugin applies the "logs" config to the logger registry. It starts
// first so the levels hold before other plugins log.
type LogsPlugin struct {
	infra.PluginDeps
	Registry logging.Registry
}

// NewLogsPlugin returns the plugin bound to the default registry.
func NewLogsPlugin() *LogsPlugin {
	p := &LogsPlugin{Registry: logging.DefaultRegistry}
	p.SetName("logs")
	p.Log = logging.ForPlugin(p.String())
	p.Cfg = config.ForPlugin(p.String(),
		config.WithCustomizedFlag(config.FlagName(p.String()), "logs.conf"),
	)
	return p
}

// Init applies the config.
func (p *LogsPlugin) Init() error {
	return applyLogConfig(p.Cfg, p.Registry)
}

// Close does nothing.
func (p *LogsPlugin) Close() error {
	return nil
}

// applyLogConfig loads the "logs" config, if present, into reg.
// Loggers missing from reg are created so later lookups get the level.
func applyLogConfig(cfg config.PluginConfig, reg logging.Registry) error {
	lc := &LogConfig{}
	found, err := confload.Load(cfg, lc)
	if err != nil || !found {
		return err
	}
	if lc.DefaultLevel != "" {
		if err := setLevelAll(reg, lc.DefaultLevel); err != nil {
			return errors.Wrap(err, "default-level")
		}
	}
	for _, l := range lc.Loggers {
		if _, err := lg.ParseLevel(l.Level); err != nil {
			return errors.Wrapf(err, "logger %s", l.Name)
		}
		if _, found := reg.Lookup(l.Name); !found {
			reg.NewLogger(l.Name)
		}
		if err := reg.SetLevel(l.Name, l.Level); err != nil {
			return errors.Wrapf(err, "logger %s", l.Name)
		}
	}
	return nil
}

// setLevelAll sets level of every logger known to reg.
func setLevelAll(reg logging.Registry, level string) error {
	if _, err := lg.ParseLevel(level); err != nil {
		return err
	}
	for name := range reg.ListLoggers() {
		if err := reg.SetLevel(name, level); err != nil {
			return err
		}
	}
	return nil
}
