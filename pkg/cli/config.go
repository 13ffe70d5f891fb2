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

package cli

import (
	"fmt"

	"github.com/carverauto/faros/pkg/discovery"
	"github.com/carverauto/faros/pkg/events"
	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/session"
	"github.com/carverauto/faros/pkg/updater"
)

// Config is the faros configuration file.
type Config struct {
	Logging   *logger.Config   `json:"logging"`
	Discovery discovery.Config `json:"discovery"`
	Session   session.Config   `json:"session"`
	Update    updater.Config   `json:"update"`
	Events    events.Config    `json:"events"`
}

// DefaultConfig returns the settings used for keys a config file omits.
func DefaultConfig() Config {
	return Config{
		Logging:   logger.DefaultConfig(),
		Discovery: discovery.DefaultConfig(),
		Session:   session.DefaultConfig(),
		Update:    updater.DefaultConfig(),
		Events:    events.DefaultConfig(),
	}
}

// Validate runs the per-section checks struct tags cannot express.
func (c *Config) Validate() error {
	if err := c.Discovery.Validate(); err != nil {
		return fmt.Errorf("discovery: %w", err)
	}

	if err := c.Events.Validate(); err != nil {
		return fmt.Errorf("events: %w", err)
	}

	return nil
}
