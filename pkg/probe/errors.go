/*-
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

package probe

import "errors"

var (
	errNoProbe         = errors.New("no probe found")
	errMissingTarget   = errors.New("probe target is required")
	errMissingSource   = errors.New("source probe requires a source")
	errUnhealthyStatus = errors.New("unhealthy status code")
	errNotServing      = errors.New("service is not serving")
)
