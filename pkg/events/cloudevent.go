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

import "time"

const (
	specVersion     = "1.0"
	dataContentType = "application/json"
	typePrefix      = "com.carverauto.faros."

	TypeDiscoveryCompleted = "discovery.completed"
	TypeUpdateDevice       = "update.device"
	TypeUpdateCompleted    = "update.completed"
	TypeReachabilityResult = "reachability.result"
)

// CloudEvent is the CloudEvents 1.0 JSON envelope.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data"`
}

// DiscoveryCompleted summarizes one discovery run.
type DiscoveryCompleted struct {
	RunID        string    `json:"run_id"`
	Time         time.Time `json:"time"`
	Hubs         int       `json:"hubs"`
	Irises       int       `json:"irises"`
	CPEs         int       `json:"cpes"`
	VGERs        int       `json:"vgers"`
	RRHs         int       `json:"rrhs"`
	ErrorChains  int       `json:"errored_chains"`
	Standalone   int       `json:"standalone"`
	PartialChain int       `json:"partial_chain"`
	FetchFailed  []string  `json:"fetch_failed,omitempty"`
}

// DeviceUpdate is the terminal state of one device's update pipeline.
type DeviceUpdate struct {
	RunID   string        `json:"run_id"`
	Serial  string        `json:"serial"`
	Variant string        `json:"variant"`
	State   string        `json:"state"`
	Phase   string        `json:"phase,omitempty"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// UpdateCompleted summarizes one update run.
type UpdateCompleted struct {
	RunID     string   `json:"run_id"`
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
}

// ReachabilityResult reports whether updated devices came back.
type ReachabilityResult struct {
	RunID   string        `json:"run_id"`
	Serials []string      `json:"serials"`
	Missing []string      `json:"missing,omitempty"`
	Found   bool          `json:"found"`
	Waited  time.Duration `json:"waited_ns"`
}
