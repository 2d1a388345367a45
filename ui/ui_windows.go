// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/windows"
)

// savedConsoleMode holds the stdout console mode to restore at exit,
// or the sentinel when Init left the console untouched.
var savedConsoleMode = ^uint32(0)

// Init enables ANSI escape sequence processing on the stdout console.
func Init() {
	h := windows.Handle(os.Stdout.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		// Not a console, e.g. redirected output.
		log.Debugf("GetConsoleMode: %v", err)
		return
	}
	if mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0 {
		return
	}
	if err := windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING); err != nil {
		log.Warnf("SetConsoleMode: %v", err)
		return
	}
	savedConsoleMode = mode
}

// Restore puts the stdout console mode back to what Init found.
func Restore() {
	if savedConsoleMode == ^uint32(0) {
		return
	}
	h := windows.Handle(os.Stdout.Fd())
	if err := windows.SetConsoleMode(h, savedConsoleMode); err != nil {
		log.Warnf("SetConsoleMode 0x%x: %v", savedConsoleMode, err)
	}
}
