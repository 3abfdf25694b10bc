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

// Package confload decodes plugin configuration read through cn-infra
// config into typed structs. Duration fields accept "6s" style strings.
package confload

import (
	"reflect"
	"time"

	"github.com/ghodss/yaml"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/config"
)

// Load reads the plugin config behind pc into cfg. Found is false when
// no config file was selected for the plugin.
func Load(pc config.PluginConfig, cfg interface{}) (found bool, err error) {
	var data map[string]interface{}
	found, err = pc.LoadValue(&data)
	if err != nil || !found {
		return found, err
	}
	if err := Decode(data, cfg); err != nil {
		return false, errors.Wrapf(err, "decoding %s", pc.GetConfigName())
	}
	return true, nil
}

// Decode copies YAML-decoded data into cfg using its json tags.
func Decode(data map[string]interface{}, cfg interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: durationHook,
		Result:     cfg,
		TagName:    "json",
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

func durationHook(in, out reflect.Type, data interface{}) (interface{}, error) {
	if out != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return time.ParseDuration(v)
	case float64:
		// bare numbers are seconds
		return time.Duration(v * float64(time.Second)), nil
	}
	return data, nil
}

// Inline returns plugin config parsed from the YAML document b instead
// of a file. An empty document means no config.
func Inline(name string, b []byte) config.PluginConfig {
	return &inlineConfig{name: name, data: b}
}

type inlineConfig struct {
	name string
	data []byte
}

func (c *inlineConfig) LoadValue(v interface{}) (bool, error) {
	if len(c.data) == 0 {
		return false, nil
	}
	if err := yaml.Unmarshal(c.data, v); err != nil {
		return false, errors.Wrapf(err, "parsing %s config", c.name)
	}
	return true, nil
}

func (c *inlineConfig) GetConfigName() string {
	return c.name + " (inline)"
}
