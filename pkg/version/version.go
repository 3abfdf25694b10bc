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

// Package version provides build information of the cps-agent binaries.
package version

import (
	"fmt"
	"runtime"
	"strconv"
	"time"
)

// Set at link time with -X.
var (
	app       = "cps-agent"
	version   = "v0.1.0"
	gitCommit = "unknown"
	gitBranch = "HEAD"
	buildUser = "unknown"
	buildHost = "unknown"
	buildDate = ""
)

var buildTime time.Time
var revision string

func init() {
	if buildDate != "" {
		stamp, _ := strconv.ParseInt(buildDate, 10, 64)
		buildTime = time.Unix(stamp, 0)
	}
	revision = gitCommit
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if gitBranch != "HEAD" {
		revision += "@" + gitBranch
	}
}

// Info is the build information served by the REST API.
type Info struct {
	App       string `json:"app"`
	Version   string `json:"version"`
	Revision  string `json:"revision"`
	BuildUser string `json:"build_user"`
	BuildHost string `json:"build_host"`
	BuildTime int64  `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// Get returns build information of the running binary.
func Get() Info {
	info := Info{
		App:       app,
		Version:   version,
		Revision:  revision,
		BuildUser: buildUser,
		BuildHost: buildHost,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if !buildTime.IsZero() {
		info.BuildTime = buildTime.Unix()
	}
	return info
}

// App returns app name.
func App() string {
	return app
}

// Version returns version string.
func Version() string {
	return version
}

// Short returns app name with version.
func Short() string {
	return fmt.Sprintf("%s %s", app, version)
}

// BuiltOn returns build date, with age when known.
func BuiltOn() string {
	if buildTime.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s)", buildTime.Format(time.UnixDate), timeAgo(buildTime))
}

// Detail returns version info on separate lines.
func Detail() string {
	return fmt.Sprintf(`%s
  Version:   	%s
  Revision:  	%s
  Built By:  	%s@%s
  Build Date:	%s
  Go Runtime:	%s (%s/%s)`,
		app, version, revision,
		buildUser, buildHost, BuiltOn(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH,
	)
}

func timeAgo(t time.Time) string {
	const day = time.Hour * 24
	switch ago := time.Since(t); {
	case ago > day:
		return fmt.Sprintf("%v days ago", float64(ago.Round(day)/day))
	case ago > time.Hour:
		return fmt.Sprintf("%v hours ago", ago.Round(time.Hour).Hours())
	case ago > time.Minute:
		return fmt.Sprintf("%v minutes ago", ago.Round(time.Minute).Minutes())
	}
	return "just now"
}
