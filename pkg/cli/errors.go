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

import "errors"

var (
	errConfigLoad         = errors.New("failed to load configuration")
	errConflictingOnly    = errors.New("only one of --bootbin-only, --imageub-only and --bootbit-only may be set")
	errUnknownVariant     = errors.New("unknown variant")
	errNoSerials          = errors.New("no serials given; pass serials or --patch-all")
	errStandaloneNeedsAll = errors.New("--standalone requires --patch-all")
	errDevicesMissing     = errors.New("not every updated device came back")
	errUnknownDevices     = errors.New("devices not found on the network")
)
