// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package machine identifies the machines involved in a build.
//
// The build machine is the one the configuration step runs on.
// The host machine is the one the built artifacts run on.
// They differ only in a cross build.
package machine

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Choice selects the build or the host machine.
type Choice int

const (
	// Build is the machine doing the compilation.
	Build Choice = iota
	// Host is the machine the compiled artifacts run on.
	Host
)

// String returns the lowercase machine name.
func (c Choice) String() string {
	switch c {
	case Build:
		return "build"
	case Host:
		return "host"
	}
	return fmt.Sprintf("machine.Choice(%d)", int(c))
}

// Choices returns all machines in canonical order.
func Choices() []Choice {
	return []Choice{Build, Host}
}

// Info describes one machine.
type Info struct {
	// System is the operating system, e.g. "linux", "darwin",
	// "windows", "sunos", "aix".
	System string `json:"system"`
	// CPUFamily is the canonical cpu family, e.g. "x86_64", "aarch64".
	CPUFamily string `json:"cpu_family"`
	// CPU is a finer grained cpu description, e.g. a brand string.
	CPU string `json:"cpu"`
	// Endian is "little" or "big".
	Endian string `json:"endian"`
}

// Windows reports whether the machine runs Windows.
func (m Info) Windows() bool { return m.System == "windows" }

// Cygwin reports whether the machine runs Cygwin on Windows.
func (m Info) Cygwin() bool { return m.System == "cygwin" }

// Darwin reports whether the machine runs macOS or iOS.
func (m Info) Darwin() bool { return m.System == "darwin" }

// Haiku reports whether the machine runs Haiku.
func (m Info) Haiku() bool { return m.System == "haiku" }

// SunOS reports whether the machine runs Solaris or illumos.
func (m Info) SunOS() bool { return m.System == "sunos" }

// OpenBSD reports whether the machine runs OpenBSD.
func (m Info) OpenBSD() bool { return m.System == "openbsd" }

// DragonflyBSD reports whether the machine runs DragonFly BSD.
func (m Info) DragonflyBSD() bool { return m.System == "dragonfly" }

// Hurd reports whether the machine runs GNU/Hurd.
func (m Info) Hurd() bool { return m.System == "gnu" }

// goosSystems maps runtime.GOOS values that differ from the canonical
// system name.
var goosSystems = map[string]string{
	"solaris": "sunos",
	"illumos": "sunos",
	"js":      "emscripten",
	"wasip1":  "emscripten",
}

// goarchFamilies maps runtime.GOARCH to the canonical cpu family and
// endianness.
var goarchFamilies = map[string]struct {
	family string
	endian string
}{
	"386":      {"x86", "little"},
	"amd64":    {"x86_64", "little"},
	"arm":      {"arm", "little"},
	"arm64":    {"aarch64", "little"},
	"loong64":  {"loongarch64", "little"},
	"mips":     {"mips", "big"},
	"mipsle":   {"mips", "little"},
	"mips64":   {"mips64", "big"},
	"mips64le": {"mips64", "little"},
	"ppc64":    {"ppc64", "big"},
	"ppc64le":  {"ppc64", "little"},
	"riscv64":  {"riscv64", "little"},
	"s390x":    {"s390x", "big"},
	"wasm":     {"wasm32", "little"},
}

// DetectBuildMachine returns Info for the machine this process runs on.
func DetectBuildMachine() Info {
	system := runtime.GOOS
	if s, ok := goosSystems[system]; ok {
		system = s
	}
	fam, ok := goarchFamilies[runtime.GOARCH]
	if !ok {
		fam.family = runtime.GOARCH
		fam.endian = "little"
	}
	cpu := cpuid.CPU.BrandName
	if cpu == "" {
		cpu = fam.family
	}
	return Info{
		System:    system,
		CPUFamily: fam.family,
		CPU:       cpu,
		Endian:    fam.endian,
	}
}
