// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package parser

import "encoding/base64"

// decodeB64 decodes a `b64_"..."` string literal body. Flag application
// order (spec.md §4.1: unindent before base64) means this runs after any
// unindent pass has already stripped common leading whitespace.
func decodeB64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
