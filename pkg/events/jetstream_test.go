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
	"testing"
	"time"

	"github.com/carverauto/faros/pkg/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	srv, err := server.NewServer(opts)
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	require.Eventually(t, func() bool {
		return srv.JetStreamEnabled()
	}, 5*time.Second, 50*time.Millisecond, "embedded NATS server not ready for JetStream")

	t.Cleanup(srv.Shutdown)

	return srv
}

func TestConnectPublishesToStream(t *testing.T) {
	srv := runJetStreamServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.URL = srv.ClientURL()

	pub, err := NewPublisher(ctx, &cfg, logger.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, pub.Publish(ctx, TypeUpdateCompleted, "run-1", UpdateCompleted{
		RunID:     "run-1",
		Succeeded: []string{"RF3E000001"},
		Failed:    []string{"RF3E000002"},
	}))
	require.NoError(t, pub.Close())
	require.ErrorIs(t, pub.Publish(ctx, TypeUpdateCompleted, "run-1", nil), ErrPublisherClosed)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)

	defer nc.Close()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	stream, err := js.Stream(ctx, defaultStream)
	require.NoError(t, err)

	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"faros.>"}, info.Config.Subjects)
	assert.Equal(t, uint64(1), info.State.Msgs)

	msg, err := stream.GetMsg(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "faros.update.completed", msg.Subject)

	var ev struct {
		Type string          `json:"type"`
		Data UpdateCompleted `json:"data"`
	}

	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, "com.carverauto.faros.update.completed", ev.Type)
	assert.Equal(t, []string{"RF3E000002"}, ev.Data.Failed)
}

func TestConnectWidensExistingStream(t *testing.T) {
	srv := runJetStreamServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)

	defer nc.Close()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{Name: "LAB", Subjects: []string{"other.>"}})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.URL = srv.ClientURL()
	cfg.Stream = "LAB"
	cfg.SubjectPrefix = "lab"

	pub, err := Connect(ctx, &cfg, nil)
	require.NoError(t, err)

	defer func() { _ = pub.Close() }()

	stream, err := js.Stream(ctx, "LAB")
	require.NoError(t, err)

	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"other.>", "lab.>"}, info.Config.Subjects)
}
