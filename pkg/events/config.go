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
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

const (
	defaultStream        = "FAROS_EVENTS"
	defaultSubjectPrefix = "faros"
)

// Config selects the NATS server and JetStream stream events go to.
type Config struct {
	Enabled       bool      `json:"enabled"`
	URL           string    `json:"url" validate:"required_if=Enabled true"`
	Stream        string    `json:"stream"`
	SubjectPrefix string    `json:"subject_prefix"`
	Domain        string    `json:"domain,omitempty"`
	CredsFile     string    `json:"creds_file,omitempty"`
	TLS           TLSConfig `json:"tls"`
}

// TLSConfig holds optional mTLS material for the NATS connection.
type TLSConfig struct {
	CAFile     string `json:"ca_file,omitempty"`
	CertFile   string `json:"cert_file,omitempty"`
	KeyFile    string `json:"key_file,omitempty"`
	ServerName string `json:"server_name,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Stream:        defaultStream,
		SubjectPrefix: defaultSubjectPrefix,
	}
}

func (c *Config) Validate() error {
	if c.Enabled && c.URL == "" {
		return ErrURLRequired
	}

	return nil
}

func (c *Config) stream() string {
	if c.Stream == "" {
		return defaultStream
	}

	return c.Stream
}

func (c *Config) prefix() string {
	if c.SubjectPrefix == "" {
		return defaultSubjectPrefix
	}

	return c.SubjectPrefix
}

// Enabled reports whether any certificate material is configured.
func (t *TLSConfig) Enabled() bool {
	return t.CAFile != "" || t.CertFile != ""
}

// Build loads the configured certificates.
func (t *TLSConfig) Build() (*tls.Config, error) {
	out := &tls.Config{
		ServerName: t.ServerName,
		MinVersion: tls.VersionTLS13,
	}

	if t.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}

		out.Certificates = []tls.Certificate{cert}
	}

	if t.CAFile != "" {
		caCert, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, ErrCAParsingFailed
		}

		out.RootCAs = pool
	}

	return out, nil
}
