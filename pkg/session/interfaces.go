/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

//go:generate mockgen -destination=mock_session.go -package=session github.com/carverauto/faros/pkg/session Dialer,Conn

// Package session manages authenticated remote shell connections to devices.
// At most one connection per device is live at a time.
package session

import (
	"context"
	"io"
)

// Target is the device a session connects to.
type Target interface {
	Serial() string
	DialAddress() string
}

// Dialer opens authenticated connections.
type Dialer interface {
	Dial(ctx context.Context, host string) (Conn, error)
}

// Conn is one authenticated connection.
type Conn interface {
	// Run executes cmd and returns its output. A non-zero exit status is
	// reported through Result.ExitCode, not as an error.
	Run(ctx context.Context, cmd string) (Result, error)
	// Upload copies content into remoteDir under name.
	Upload(ctx context.Context, remoteDir, name string, size int64, content io.Reader) error
	Close() error
}

// Result is the outcome of one remote command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}
