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

//go:generate mockgen -destination=mock_events.go -package=events github.com/carverauto/faros/pkg/events Publisher

// Package events publishes faros run results as CloudEvents on NATS JetStream.
package events

import "context"

// Publisher emits one CloudEvent per call. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, eventType, subject string, data interface{}) error
	Close() error
}
