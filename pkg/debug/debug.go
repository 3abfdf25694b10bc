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

// Package debug runs the optional profiling and pprof/expvar server of
// the agent, controlled by CPS_DEBUG* env variables.
package debug

import (
	"context"
	_ "expvar"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/pkg/profile"
	"go.ligato.io/cn-infra/v2/logging"
)

const defaultServerAddr = "127.0.0.1:1234"

// Config selects what to run. Zero value runs the server on the default
// address without profiling.
type Config struct {
	ProfileMode string // cpu, mem, mutex, block or trace
	ProfilePath string // directory of the profile file
	ServerAddr  string
}

// ConfigFromEnv reads CPS_DEBUG_PROFILE_MODE, CPS_DEBUG_PROFILE_PATH and
// CPS_DEBUG_SERVER_ADDR.
func ConfigFromEnv() Config {
	return Config{
		ProfileMode: os.Getenv("CPS_DEBUG_PROFILE_MODE"),
		ProfilePath: os.Getenv("CPS_DEBUG_PROFILE_PATH"),
		ServerAddr:  os.Getenv("CPS_DEBUG_SERVER_ADDR"),
	}
}

type Debug struct {
	log    logging.Logger
	closer func()
	server *http.Server
	addr   net.Addr
}

// Start begins profiling and serves net/http/pprof and expvar pages.
func Start(cfg Config, log logging.Logger) (*Debug, error) {
	d := &Debug{log: log}
	d.runProfiling(cfg)
	if err := d.runServer(cfg.ServerAddr); err != nil {
		d.Stop()
		return nil, err
	}
	return d, nil
}

// Addr returns address of the debug server.
func (d *Debug) Addr() string {
	return d.addr.String()
}

// Stop stops the server and writes the profile.
func (d *Debug) Stop() {
	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := d.server.Shutdown(ctx); err != nil {
			d.log.Warnf("debug server shutdown: %v", err)
		}
	}
	if d.closer != nil {
		d.closer()
	}
}

func (d *Debug) runProfiling(cfg Config) {
	var profiling func(*profile.Profile)

	switch strings.ToLower(cfg.ProfileMode) {
	case "cpu":
		profiling = profile.CPUProfile
	case "mem":
		profiling = profile.MemProfile
	case "mutex":
		profiling = profile.MutexProfile
	case "block":
		profiling = profile.BlockProfile
	case "trace":
		profiling = profile.TraceProfile
	default:
		return
	}

	opts := []func(*profile.Profile){
		profiling,
		profile.ProfilePath(cfg.ProfilePath),
		profile.NoShutdownHook,
		profile.Quiet,
	}

	d.log.Infof("%s profiling into %s", cfg.ProfileMode, cfg.ProfilePath)
	d.closer = profile.Start(opts...).Stop
}

func (d *Debug) runServer(addr string) error {
	if addr == "" {
		addr = defaultServerAddr
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	d.addr = l.Addr()
	d.server = &http.Server{Handler: http.DefaultServeMux}

	d.log.Infof("debug server listening on: %s", d.addr)

	go func() {
		if err := d.server.Serve(l); err != nil && err != http.ErrServerClosed {
			d.log.Errorf("debug server error: %v", err)
		}
	}()
	return nil
}
