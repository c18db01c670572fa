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

package source

import "errors"

var (
	errUnknownSourceType = errors.New("unknown source type")
	errMissingURL        = errors.New("http source requires a url")
	errMissingAddress    = errors.New("grpc source requires an address")
	errMissingSNMP       = errors.New("snmp source requires host and oids")
	errUnexpectedStatus  = errors.New("unexpected status code")
	errNotAnObject       = errors.New("response is not a JSON object")
	errNoReadings        = errors.New("response contained no numeric readings")
	errUnsupportedType   = errors.New("unsupported SNMP type")
	errUnsupportedVer    = errors.New("unsupported SNMP version")
	errNoSuchObject      = errors.New("no such object")
)
