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

package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCommandFailed  = errors.New("remote command failed")
	ErrCommandTimeout = errors.New("remote command timed out")
	ErrSessionClosed  = errors.New("session is closed")
	ErrSCPRejected    = errors.New("scp transfer rejected")
	ErrDial           = errors.New("failed to open session")

	// ErrNoExitStatus means the channel closed before the command reported
	// an exit status, as when the device reboots underneath it.
	ErrNoExitStatus = errors.New("remote command ended without exit status")
)

// CommandError carries a failed command's exit status and stderr.
type CommandError struct {
	Serial   string
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %q exited with status %d", e.Serial, e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}

	return msg
}

func (*CommandError) Unwrap() error {
	return ErrCommandFailed
}

// DialError reports a device whose session could not be opened.
type DialError struct {
	Serial string
	Err    error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("%s: %v", e.Serial, e.Err)
}

func (e *DialError) Unwrap() []error {
	return []error{ErrDial, e.Err}
}
