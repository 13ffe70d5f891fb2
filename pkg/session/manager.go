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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/carverauto/faros/pkg/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Manager opens sessions and guarantees that each device has at most one
// live session. A second Open for the same serial waits for the first to
// close.
type Manager struct {
	dialer          Dialer
	logger          logger.Logger
	limiter         *rate.Limiter
	commandTimeout  time.Duration
	transferTimeout time.Duration

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithCommandTimeout bounds every Run issued through the manager's sessions.
func WithCommandTimeout(d time.Duration) Option {
	return func(m *Manager) { m.commandTimeout = d }
}

// WithTransferTimeout bounds every Upload.
func WithTransferTimeout(d time.Duration) Option {
	return func(m *Manager) { m.transferTimeout = d }
}

// WithDialRate paces new connections. A rate of 0 disables pacing.
func WithDialRate(perSecond float64, burst int) Option {
	return func(m *Manager) {
		if perSecond <= 0 {
			m.limiter = nil

			return
		}

		if burst < 1 {
			burst = 1
		}

		m.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func NewManager(dialer Dialer, log logger.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logger.NewTestLogger()
	}

	m := &Manager{
		dialer: dialer,
		logger: log,
		locks:  make(map[string]chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// NewManagerFromConfig wires an SSH dialer and the config's dial pacing.
func NewManagerFromConfig(cfg Config, log logger.Logger, opts ...Option) *Manager {
	opts = append([]Option{WithDialRate(cfg.DialRate, cfg.DialBurst)}, opts...)

	return NewManager(NewSSHDialer(cfg), log, opts...)
}

func (m *Manager) lockFor(serial string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[serial]
	if !ok {
		l = make(chan struct{}, 1)
		m.locks[serial] = l
	}

	return l
}

// Open acquires the device's slot and dials it. The slot is released when
// the returned session is closed, or immediately if dialing fails.
func (m *Manager) Open(ctx context.Context, target Target) (*Session, error) {
	lock := m.lockFor(target.Serial())

	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return nil, &DialError{Serial: target.Serial(), Err: ctx.Err()}
	}

	release := func() { <-lock }

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			release()

			return nil, &DialError{Serial: target.Serial(), Err: err}
		}
	}

	conn, err := m.dialer.Dial(ctx, target.DialAddress())
	if err != nil {
		release()

		m.logger.Debug().Err(err).Str("serial", target.Serial()).Msg("Dial failed")

		return nil, &DialError{Serial: target.Serial(), Err: err}
	}

	m.logger.Debug().Str("serial", target.Serial()).Str("host", target.DialAddress()).Msg("Session opened")

	return &Session{
		target:  target,
		conn:    conn,
		release: release,
		manager: m,
		logger:  m.logger,
	}, nil
}

// WithSession opens a session, runs fn and always closes the session, even
// when fn panics.
func (m *Manager) WithSession(ctx context.Context, target Target, fn func(*Session) error) (err error) {
	s, err := m.Open(ctx, target)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close session %s: %w", target.Serial(), closeErr)
		}
	}()

	return fn(s)
}

// Batch holds sessions opened together. Devices that could not be reached
// are listed in Failures instead of failing the whole batch.
type Batch struct {
	Sessions []*Session
	Failures []*DialError
}

// OpenBatch dials all targets concurrently. Sessions keep the targets' order.
func (m *Manager) OpenBatch(ctx context.Context, targets []Target) *Batch {
	sessions := make([]*Session, len(targets))
	failures := make([]*DialError, len(targets))

	var g errgroup.Group

	for i, t := range targets {
		g.Go(func() error {
			s, err := m.Open(ctx, t)
			if err != nil {
				var de *DialError
				if !errors.As(err, &de) {
					de = &DialError{Serial: t.Serial(), Err: err}
				}

				failures[i] = de

				return nil
			}

			sessions[i] = s

			return nil
		})
	}

	_ = g.Wait()

	b := &Batch{}

	for i := range targets {
		if sessions[i] != nil {
			b.Sessions = append(b.Sessions, sessions[i])
		}

		if failures[i] != nil {
			b.Failures = append(b.Failures, failures[i])
		}
	}

	return b
}

// FailedSerials lists the serials that could not be dialed, sorted.
func (b *Batch) FailedSerials() []string {
	out := make([]string, 0, len(b.Failures))
	for _, f := range b.Failures {
		out = append(out, f.Serial)
	}

	sort.Strings(out)

	return out
}

// Close closes every session in the batch.
func (b *Batch) Close() error {
	var errs []error

	for _, s := range b.Sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Session is a live connection to one device.
type Session struct {
	target  Target
	conn    Conn
	release func()
	manager *Manager
	logger  logger.Logger

	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
	closeErr  error
}

func (s *Session) Serial() string {
	return s.target.Serial()
}

func (s *Session) Target() Target {
	return s.target
}

// Exec runs cmd and returns its result regardless of exit status.
func (s *Session) Exec(ctx context.Context, cmd string) (Result, error) {
	if s.isClosed() {
		return Result{}, ErrSessionClosed
	}

	if s.manager.commandTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.manager.commandTimeout)
		defer cancel()
	}

	s.logger.Debug().Str("serial", s.Serial()).Str("cmd", cmd).Msg("Running remote command")

	res, err := s.conn.Run(ctx, cmd)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrCommandTimeout
		}

		return res, fmt.Errorf("%s: %q: %w", s.Serial(), cmd, err)
	}

	return res, nil
}

// Run runs cmd and treats a non-zero exit status as a CommandError.
func (s *Session) Run(ctx context.Context, cmd string) (Result, error) {
	res, err := s.Exec(ctx, cmd)
	if err != nil {
		return res, err
	}

	if res.ExitCode != 0 {
		return res, &CommandError{
			Serial:   s.Serial(),
			Command:  cmd,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
		}
	}

	return res, nil
}

// Upload copies the local file into remoteDir, keeping its base name.
func (s *Session) Upload(ctx context.Context, localPath, remoteDir string) error {
	if s.isClosed() {
		return ErrSessionClosed
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	if s.manager.transferTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.manager.transferTimeout)
		defer cancel()
	}

	name := filepath.Base(localPath)

	s.logger.Debug().
		Str("serial", s.Serial()).
		Str("file", name).
		Int64("bytes", info.Size()).
		Str("dest", remoteDir).
		Msg("Uploading file")

	if err := s.conn.Upload(ctx, remoteDir, name, info.Size(), f); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrCommandTimeout
		}

		return fmt.Errorf("%s: upload %s: %w", s.Serial(), name, err)
	}

	return nil
}

// Close closes the connection and frees the device's slot. It is safe to
// call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.closeErr = s.conn.Close()
		s.release()
	})

	return s.closeErr
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
