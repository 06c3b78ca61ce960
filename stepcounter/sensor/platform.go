/*
	Copyright 2024 StepCounting Authors

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package sensor

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/michaelquigley/pfxlog"
	"github.com/shirou/gopsutil/v3/host"
)

// PlatformProvider supplies the platform identifier reported in UnavailableError.
type PlatformProvider interface {
	GetPlatformInfo() PlatformInfo
}

// PlatformInfo describes the operating system the native module runs on. OS is the short
// identifier (android, ios, linux, ...), Family and Version are best effort.
type PlatformInfo struct {
	OS      string `json:"os"`
	Family  string `json:"family,omitempty"`
	Version string `json:"version,omitempty"`
}

func (info PlatformInfo) String() string {
	if info.Version == "" {
		return info.OS
	}
	return fmt.Sprintf("%s %s", info.OS, info.Version)
}

// PlatformProviderFunc is a function adapter that implements PlatformProvider.
type PlatformProviderFunc func() PlatformInfo

func (f PlatformProviderFunc) GetPlatformInfo() PlatformInfo {
	return f()
}

// StaticPlatform returns a provider that always reports the given OS.
func StaticPlatform(os string) PlatformProvider {
	return PlatformProviderFunc(func() PlatformInfo {
		return PlatformInfo{OS: os}
	})
}

// NewPlatformProvider creates the default provider, which queries the host once and caches
// the answer.
func NewPlatformProvider() PlatformProvider {
	return &DefaultPlatformProvider{}
}

// DefaultPlatformProvider uses runtime.GOOS for the OS and the host platform information
// for family and version.
type DefaultPlatformProvider struct {
	once sync.Once
	info PlatformInfo
}

func (provider *DefaultPlatformProvider) GetPlatformInfo() PlatformInfo {
	provider.once.Do(func() {
		provider.info = PlatformInfo{OS: runtime.GOOS}

		platform, family, version, err := host.PlatformInformation()
		if err != nil {
			pfxlog.Logger().WithError(err).Debug("unable to read host platform information")
			return
		}

		if family == "" {
			family = platform
		}
		provider.info.Family = family
		provider.info.Version = version
	})
	return provider.info
}

func platformOrDefault(provider PlatformProvider) PlatformProvider {
	if provider == nil {
		return NewPlatformProvider()
	}
	return provider
}
