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

package discovery

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/models"
)

const foundDevicePrefix = "Found device"

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// SoapyEnumerator discovers devices through the SoapySDRUtil command line tool.
type SoapyEnumerator struct {
	util    string
	timeout time.Duration
	run     commandRunner
	logger  logger.Logger
}

var _ Enumerator = (*SoapyEnumerator)(nil)

// NewSoapyEnumerator returns an enumerator running util with a remote
// discovery timeout.
func NewSoapyEnumerator(util string, timeout time.Duration, log logger.Logger) *SoapyEnumerator {
	if util == "" {
		util = defaultSoapyUtil
	}

	if timeout <= 0 {
		timeout = defaultEnumerateTimeout
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &SoapyEnumerator{util: util, timeout: timeout, run: execRunner, logger: log}
}

// Enumerate runs one discovery broadcast.
func (s *SoapyEnumerator) Enumerate(ctx context.Context) ([]models.Record, error) {
	arg := fmt.Sprintf("--find=remote:timeout=%d", s.timeout.Microseconds())

	s.logger.Debug().Str("util", s.util).Str("args", arg).Msg("Running enumeration")

	out, err := s.run(ctx, s.util, arg)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", s.util, arg, err)
	}

	return ParseSoapyFind(out)
}

// ParseSoapyFind parses the "Found device N" blocks SoapySDRUtil prints, each
// followed by indented "key = value" lines.
func ParseSoapyFind(out []byte) ([]models.Record, error) {
	var (
		records []models.Record
		current models.Record
	)

	scanner := bufio.NewScanner(bytes.NewReader(out))

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, foundDevicePrefix):
			if current != nil {
				records = append(records, current)
			}

			current = models.Record{}
		case current == nil || trimmed == "":
			continue
		case line == trimmed:
			// A non-indented line ends the device block.
			records = append(records, current)
			current = nil
		default:
			key, value, ok := strings.Cut(trimmed, "=")
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrSoapyOutput, line)
			}

			current[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSoapyOutput, err)
	}

	if current != nil {
		records = append(records, current)
	}

	return records, nil
}

// StaticEnumerator returns a fixed inventory on every pass.
type StaticEnumerator struct {
	records []models.Record
}

var _ Enumerator = (*StaticEnumerator)(nil)

func NewStaticEnumerator(records []models.Record) *StaticEnumerator {
	return &StaticEnumerator{records: records}
}

func (s *StaticEnumerator) Enumerate(ctx context.Context) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}

	return out, nil
}
