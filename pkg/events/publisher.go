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

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/faros/pkg/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const source = "faros/cli"

// streamPublisher is the part of jetstream.JetStream the publisher uses.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JetStreamPublisher publishes CloudEvents to a JetStream stream.
type JetStreamPublisher struct {
	js     streamPublisher
	nc     *nats.Conn
	prefix string
	logger logger.Logger
	now    func() time.Time

	mu     sync.Mutex
	closed bool
}

var _ Publisher = (*JetStreamPublisher)(nil)

// NewPublisher connects when cfg is enabled and returns a no-op publisher
// otherwise.
func NewPublisher(ctx context.Context, cfg *Config, log logger.Logger) (Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return NewNopPublisher(), nil
	}

	return Connect(ctx, cfg, log)
}

// Connect dials NATS, ensures the stream exists and returns a publisher that
// owns the connection.
func Connect(ctx context.Context, cfg *Config, log logger.Logger) (*JetStreamPublisher, error) {
	if log == nil {
		log = logger.NewTestLogger()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts, err := connectOptions(cfg, log)
	if err != nil {
		return nil, err
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	var js jetstream.JetStream

	if cfg.Domain != "" {
		js, err = jetstream.NewWithDomain(nc, cfg.Domain)
	} else {
		js, err = jetstream.New(nc)
	}

	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, cfg.stream(), cfg.prefix()+".>"); err != nil {
		nc.Close()

		return nil, err
	}

	p := newJetStreamPublisher(js, cfg.prefix(), log)
	p.nc = nc

	return p, nil
}

func newJetStreamPublisher(js streamPublisher, prefix string, log logger.Logger) *JetStreamPublisher {
	return &JetStreamPublisher{js: js, prefix: prefix, logger: log, now: time.Now}
}

func connectOptions(cfg *Config, log logger.Logger) ([]nats.Option, error) {
	opts := []nats.Option{
		nats.Name("faros"),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Warn().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	if cfg.TLS.Enabled() {
		tlsConf, err := cfg.TLS.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	return opts, nil
}

type streamManager interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// ensureStream creates the stream if missing, or widens its subject list so
// it captures subject.
func ensureStream(ctx context.Context, js streamManager, name, subject string) error {
	if name == "" {
		return errNoStream
	}

	stream, err := js.Stream(ctx, name)
	if err == nil {
		info, infoErr := stream.Info(ctx)
		if infoErr != nil {
			return fmt.Errorf("failed to read stream %s: %w", name, infoErr)
		}

		subjects := ensureSubjectList(append([]string(nil), info.Config.Subjects...), subject)
		if len(subjects) == len(info.Config.Subjects) {
			return nil
		}

		cfg := info.Config
		cfg.Subjects = subjects

		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("failed to update stream %s: %w", name, err)
		}

		return nil
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: []string{subject},
	})
	if err != nil {
		return fmt.Errorf("failed to create or get stream %s: %w", name, err)
	}

	return nil
}

// Publish wraps data in a CloudEvent and publishes it to
// <prefix>.<eventType>.
func (p *JetStreamPublisher) Publish(ctx context.Context, eventType, subject string, data interface{}) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return ErrPublisherClosed
	}

	now := p.now()
	event := CloudEvent{
		SpecVersion:     specVersion,
		ID:              uuid.New().String(),
		Source:          source,
		Type:            typePrefix + eventType,
		DataContentType: dataContentType,
		Subject:         subject,
		Time:            &now,
		Data:            data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	natsSubject := p.prefix + "." + eventType

	ack, err := p.js.Publish(ctx, natsSubject, payload)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("nats_subject", natsSubject).
		Uint64("seq", ack.Sequence).
		Msg("Published event")

	return nil
}

// Close drains the NATS connection when the publisher owns one.
func (p *JetStreamPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	if p.nc != nil {
		return p.nc.Drain()
	}

	return nil
}

// ensureSubjectList appends subject unless an existing pattern covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, s := range subjects {
		if matchesSubject(s, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject applies NATS wildcard rules: "*" matches one token and a
// trailing ">" matches one or more.
func matchesSubject(pattern, subject string) bool {
	if pattern == subject {
		return true
	}

	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return i == len(pt)-1 && len(st) > i
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}
