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
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	scp "github.com/bramvdbogaerde/go-scp"
)

const (
	scpFileMode = "0644"
	// defaultSCPTimeout bounds an upload when the caller set no deadline.
	defaultSCPTimeout = 30 * time.Minute
)

// Upload streams content to remoteDir/name over the existing connection.
func (c *sshConn) Upload(ctx context.Context, remoteDir, name string, size int64, content io.Reader) error {
	timeout := defaultSCPTimeout

	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return ErrCommandTimeout
		}
	}

	client, err := scp.NewClientBySSHWithTimeout(c.client, timeout)
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if err := client.Copy(ctx, content, path.Join(remoteDir, name), scpFileMode, size); err != nil {
		if ctx.Err() != nil {
			return contextError(ctx)
		}

		return fmt.Errorf("%w: %w", ErrSCPRejected, err)
	}

	return nil
}

// ShellQuote single-quotes s for a POSIX shell.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
