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
	"context"
	"fmt"
	"io"

	"github.com/carverauto/faros/pkg/config"
	"github.com/carverauto/faros/pkg/discovery"
	"github.com/carverauto/faros/pkg/events"
	"github.com/carverauto/faros/pkg/lifecycle"
	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/models"
	"github.com/carverauto/faros/pkg/session"
)

type globalFlags struct {
	configPath string
	debug      bool
	user       string
	password   string
}

// app carries what every command needs once flags and config are resolved.
type app struct {
	flags globalFlags
	cfg   Config
	out   io.Writer
	style styles

	logger    logger.Logger
	telemetry *lifecycle.Telemetry
	publisher events.Publisher
}

func newApp() *app {
	return &app{cfg: DefaultConfig(), out: io.Discard, style: newStyles()}
}

// setup loads config, applies flag overrides and starts logging, telemetry
// and the event publisher.
func (a *app) setup(ctx context.Context, out io.Writer) error {
	a.out = out

	cfg := DefaultConfig()

	if err := config.NewConfig(nil).LoadAndValidate(ctx, a.flags.configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errConfigLoad, err)
	}

	a.applyFlags(&cfg)
	a.cfg = cfg

	log, err := lifecycle.CreateComponentLogger(ctx, "faros", cfg.Logging)
	if err != nil {
		return err
	}

	a.logger = log

	a.telemetry, err = lifecycle.StartTelemetry(ctx, cfg.Logging, log)
	if err != nil {
		log.Warn().Err(err).Msg("Telemetry disabled")
	}

	a.publisher, err = events.NewPublisher(ctx, &cfg.Events, lifecycle.ComponentLogger(log, "events"))
	if err != nil {
		log.Warn().Err(err).Msg("Event publishing disabled")

		a.publisher = events.NewNopPublisher()
	}

	return nil
}

func (a *app) applyFlags(cfg *Config) {
	if a.flags.debug {
		cfg.Logging.Debug = true
	}

	if a.flags.user != "" {
		cfg.Session.Username = a.flags.user
	}

	if a.flags.password != "" {
		cfg.Session.Password = a.flags.password
	}
}

func (a *app) close() {
	if a.logger == nil {
		return
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Debug().Err(err).Msg("Closing event publisher")
		}
	}

	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(); err != nil {
			a.logger.Debug().Err(err).Msg("Telemetry shutdown")
		}
	}
}

func (a *app) component(name string) logger.Logger {
	return lifecycle.ComponentLogger(a.logger, name)
}

// discoverer builds a discoverer; iterations > 0 overrides the config.
func (a *app) discoverer(iterations int) (*discovery.Discoverer, error) {
	cfg := a.cfg.Discovery
	if iterations > 0 {
		cfg.Iterations = iterations
	}

	enum, err := cfg.NewEnumerator(a.component("enumerator"))
	if err != nil {
		return nil, err
	}

	return discovery.NewDiscoverer(cfg, enum, a.component("discovery"), discovery.WithPublisher(a.publisher))
}

func (a *app) discover(ctx context.Context, iterations int) (*discovery.Discoverer, *models.Topology, error) {
	d, err := a.discoverer(iterations)
	if err != nil {
		return nil, nil, err
	}

	topo, err := d.Run(ctx)
	if err != nil {
		return nil, nil, err
	}

	return d, topo, nil
}

func (a *app) sessions() *session.Manager {
	return session.NewManagerFromConfig(a.cfg.Session, a.component("session"), a.cfg.Update.SessionOptions()...)
}

// bySerial picks the named devices in topology order and reports any serial
// discovery did not see.
func bySerial(topo *models.Topology, serials []string) ([]models.Device, []string) {
	want := make(map[string]bool, len(serials))
	for _, s := range serials {
		want[s] = false
	}

	var out []models.Device

	for _, d := range topo.Devices() {
		if _, ok := want[d.Serial()]; ok {
			want[d.Serial()] = true
			out = append(out, d)
		}
	}

	var missing []string

	for _, s := range serials {
		if !want[s] {
			missing = append(missing, s)
			want[s] = true
		}
	}

	return out, missing
}
