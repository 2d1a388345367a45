// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build !windows

package ui

// Init initializes the stdout settings.
// No initialization is needed on non-windows platforms.
func Init() {}

// Restore restores the stdout settings.
func Restore() {}
