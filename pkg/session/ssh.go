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
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHDialer dials devices with password authentication. Devices are
// reflashed routinely, so host keys are not pinned.
type SSHDialer struct {
	config  *ssh.ClientConfig
	port    int
	timeout time.Duration
}

var _ Dialer = (*SSHDialer)(nil)

// NewSSHDialer builds a dialer from cfg.
func NewSSHDialer(cfg Config) *SSHDialer {
	timeout := cfg.DialTimeout.Std()
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	password := cfg.Password

	return &SSHDialer{
		config: &ssh.ClientConfig{
			User: cfg.Username,
			Auth: []ssh.AuthMethod{
				ssh.Password(password),
				ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
					answers := make([]string, len(questions))
					for i := range answers {
						answers[i] = password
					}

					return answers, nil
				}),
			},
			//nolint:gosec // devices regenerate host keys on every flash
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         timeout,
		},
		port:    port,
		timeout: timeout,
	}
}

// Dial connects and authenticates. host may be an IPv6 literal with a zone.
func (d *SSHDialer) Dial(ctx context.Context, host string) (Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(d.port))

	dialer := net.Dialer{Timeout: d.timeout}

	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = nc.SetDeadline(deadline)
	} else {
		_ = nc.SetDeadline(time.Now().Add(d.timeout))
	}

	c, chans, reqs, err := ssh.NewClientConn(nc, addr, d.config)
	if err != nil {
		_ = nc.Close()

		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}

	_ = nc.SetDeadline(time.Time{})

	return &sshConn{client: ssh.NewClient(c, chans, reqs)}, nil
}

type sshConn struct {
	client *ssh.Client
}

func (c *sshConn) Run(ctx context.Context, cmd string) (Result, error) {
	sess, err := c.client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = sess.Close() }()

	var stdout, stderr bytes.Buffer

	sess.Stdout = &stdout
	sess.Stderr = &stderr

	if err := sess.Start(cmd); err != nil {
		return Result{}, err
	}

	err = waitSession(ctx, sess)

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var (
		exitErr    *ssh.ExitError
		missingErr *ssh.ExitMissingError
	)

	switch {
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitStatus()

		return res, nil
	case errors.As(err, &missingErr):
		return res, ErrNoExitStatus
	default:
		return res, err
	}
}

func (c *sshConn) Close() error {
	return c.client.Close()
}

func waitSession(ctx context.Context, sess *ssh.Session) error {
	done := make(chan error, 1)

	go func() { done <- sess.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		_ = sess.Close()

		return contextError(ctx)
	}
}

func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrCommandTimeout
	}

	return ctx.Err()
}
