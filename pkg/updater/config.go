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

package updater

import (
	"time"

	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/session"
)

const (
	defaultCommandTimeout  = 2 * time.Minute
	defaultTransferTimeout = 10 * time.Minute
	defaultPollInterval    = 15 * time.Second
	defaultStagingRoot     = "/tmp"
)

// Config controls remote timeouts and the post-update wait.
type Config struct {
	CommandTimeout  logger.Duration `json:"command_timeout"`
	TransferTimeout logger.Duration `json:"transfer_timeout"`
	PollInterval    logger.Duration `json:"poll_interval"`
	// WaitTimeout of 0 skips waiting for devices after the update.
	WaitTimeout logger.Duration `json:"wait_timeout"`
	StagingRoot string          `json:"staging_root" validate:"omitempty,startswith=/"`
	// Concurrency bounds parallel device pipelines; 0 is unbounded.
	Concurrency int `json:"concurrency" validate:"min=0"`
}

func DefaultConfig() Config {
	return Config{
		CommandTimeout:  logger.Duration(defaultCommandTimeout),
		TransferTimeout: logger.Duration(defaultTransferTimeout),
		PollInterval:    logger.Duration(defaultPollInterval),
		StagingRoot:     defaultStagingRoot,
	}
}

// SessionOptions applies the remote timeouts to a session manager.
func (c *Config) SessionOptions() []session.Option {
	return []session.Option{
		session.WithCommandTimeout(c.CommandTimeout.Std()),
		session.WithTransferTimeout(c.TransferTimeout.Std()),
	}
}
