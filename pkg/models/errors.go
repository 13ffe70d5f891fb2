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

package models

import "errors"

var (
	ErrStatusKeyMissing = errors.New("status key missing")
	ErrStatusKeyType    = errors.New("status key has unexpected type")
	ErrInvalidMAC       = errors.New("invalid MAC address")
	ErrNoRemoteURL      = errors.New("record has no remote URL")
	ErrNotClassifiable  = errors.New("record does not match any device family")

	// Chain structure problems. These are attached to a Chain, never returned
	// from discovery.
	ErrNoChainHead          = errors.New("chain has no head node")
	ErrMultipleChainHeads   = errors.New("chain has more than one head node")
	ErrChainIndexConflict   = errors.New("chain members disagree on chain index")
	ErrMissingChainConfig   = errors.New("chain head carries no chain configuration")
	ErrDuplicateChainMember = errors.New("chain has two nodes at the same position")
)
