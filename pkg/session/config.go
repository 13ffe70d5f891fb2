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
	"time"

	"github.com/carverauto/faros/pkg/logger"
)

const (
	defaultUsername    = "sklk"
	defaultPassword    = "sklk"
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second
)

// Config holds credentials and dial pacing.
type Config struct {
	Username    string          `json:"username" validate:"required"`
	Password    string          `json:"password" sensitive:"true"`
	Port        int             `json:"port" validate:"min=1,max=65535"`
	DialTimeout logger.Duration `json:"dial_timeout"`
	// DialRate limits new connections per second; 0 disables the limit.
	DialRate  float64 `json:"dial_rate" validate:"min=0"`
	DialBurst int     `json:"dial_burst" validate:"min=0"`
}

func DefaultConfig() Config {
	return Config{
		Username:    defaultUsername,
		Password:    defaultPassword,
		Port:        defaultPort,
		DialTimeout: logger.Duration(defaultDialTimeout),
	}
}
