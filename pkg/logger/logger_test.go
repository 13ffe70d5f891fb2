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

package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Duration
		wantErr  bool
	}{
		{name: "string duration", input: `"5s"`, expected: Duration(5 * time.Second)},
		{name: "numeric duration (nanoseconds)", input: `5000000000`, expected: Duration(5 * time.Second)},
		{name: "compound duration", input: `"1h30m45s"`, expected: Duration(time.Hour + 30*time.Minute + 45*time.Second)},
		{name: "invalid duration string", input: `"invalid"`, wantErr: true},
		{name: "invalid type", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				require.ErrorIs(t, err, errInvalidDuration)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestDuration_MarshalRoundTrip(t *testing.T) {
	out, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.JSONEq(t, `"1m30s"`, string(out))
}

func TestWithComponentAddsField(t *testing.T) {
	var buf bytes.Buffer

	log := New(zerolog.New(&buf))
	component := log.WithComponent("discovery")
	component.Info().Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "discovery", entry["component"])
	assert.Equal(t, "hello", entry["message"])
}

func TestSetDebugChangesLevel(t *testing.T) {
	var buf bytes.Buffer

	log := New(zerolog.New(&buf).Level(zerolog.InfoLevel))
	log.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	log.SetDebug(true)
	log.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_OUTPUT", "stdout")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc, tenant = lab")

	cfg := DefaultConfig()
	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, "stdout", cfg.Output)
	assert.Equal(t, "abc", cfg.OTel.Headers["x-api-key"])
	assert.Equal(t, "lab", cfg.OTel.Headers["tenant"])
	assert.Equal(t, defaultServiceName, cfg.OTel.ServiceName)
}

func TestNewOTELWriterValidation(t *testing.T) {
	_, err := NewOTELWriter(t.Context(), OTelConfig{})
	require.ErrorIs(t, err, ErrOTelLoggingDisabled)

	_, err = NewOTELWriter(t.Context(), OTelConfig{Enabled: true})
	require.ErrorIs(t, err, ErrOTelEndpointRequired)
}

func TestMapZerologLevelToOTEL(t *testing.T) {
	assert.Equal(t, mapZerologLevelToOTEL("warn"), mapZerologLevelToOTEL("warning"))
	assert.Equal(t, mapZerologLevelToOTEL("fatal"), mapZerologLevelToOTEL("panic"))
	assert.Equal(t, mapZerologLevelToOTEL("info"), mapZerologLevelToOTEL("bogus"))
}

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer

	mw := NewMultiWriter(&a, &b)
	n, err := mw.Write([]byte("line"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "line", a.String())
	assert.Equal(t, "line", b.String())
}

func TestTruncateString(t *testing.T) {
	long := bytes.Repeat([]byte("a"), maxAttributeValueLength+10)

	out, cut := truncateString(string(long), maxAttributeValueLength)
	assert.True(t, cut)
	assert.Len(t, out, maxAttributeValueLength)

	out, cut = truncateString("short", maxAttributeValueLength)
	assert.False(t, cut)
	assert.Equal(t, "short", out)
}
