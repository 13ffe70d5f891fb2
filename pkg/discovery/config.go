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
	"fmt"
	"time"

	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/models"
)

const (
	EnumeratorSoapy  = "soapy"
	EnumeratorStatic = "static"

	defaultIterations       = 3
	defaultIterationSpacing = time.Second
	defaultEnumerateTimeout = 800 * time.Millisecond
	defaultFetchTimeout     = 10 * time.Second
	defaultSoapyUtil        = "SoapySDRUtil"
)

// Config controls enumeration and metadata fetching.
type Config struct {
	Iterations        int             `json:"iterations" validate:"min=1"`
	IterationInterval logger.Duration `json:"iteration_interval"`
	EnumerateTimeout  logger.Duration `json:"enumerate_timeout"`
	FetchTimeout      logger.Duration `json:"fetch_timeout"`
	// FetchConcurrency bounds concurrent metadata requests; 0 is unbounded.
	FetchConcurrency int             `json:"fetch_concurrency" validate:"min=0"`
	Enumerator       string          `json:"enumerator" validate:"omitempty,oneof=soapy static"`
	SoapyUtil        string          `json:"soapy_util"`
	StaticRecords    []models.Record `json:"static_records,omitempty"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	return Config{
		Iterations:        defaultIterations,
		IterationInterval: logger.Duration(defaultIterationSpacing),
		EnumerateTimeout:  logger.Duration(defaultEnumerateTimeout),
		FetchTimeout:      logger.Duration(defaultFetchTimeout),
		Enumerator:        EnumeratorSoapy,
		SoapyUtil:         defaultSoapyUtil,
	}
}

// Validate checks combinations struct tags cannot express.
func (c *Config) Validate() error {
	if c.Iterations < 1 {
		return ErrInvalidIterations
	}

	if c.Enumerator == EnumeratorStatic && len(c.StaticRecords) == 0 {
		return ErrStaticRecordsMissing
	}

	return nil
}

// NewEnumerator builds the enumerator the config selects.
func (c *Config) NewEnumerator(log logger.Logger) (Enumerator, error) {
	switch c.Enumerator {
	case "", EnumeratorSoapy:
		return NewSoapyEnumerator(c.SoapyUtil, c.EnumerateTimeout.Std(), log), nil
	case EnumeratorStatic:
		return NewStaticEnumerator(c.StaticRecords), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnumerator, c.Enumerator)
	}
}
