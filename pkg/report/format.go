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

package report

import (
	"fmt"
	"io"
	"strings"
)

const (
	headerWidth = 72
	indentStep  = 4
)

// writeHeader draws a three line banner, narrowed by the indent so nested
// sections keep the same right edge.
func writeHeader(w io.Writer, title string, indent int) {
	pad := strings.Repeat(" ", indent)
	rule := strings.Repeat("=", headerWidth-indent)

	fmt.Fprintf(w, "%s%s\n", pad, rule)
	fmt.Fprintf(w, "%s==== %s\n", pad, title)
	fmt.Fprintf(w, "%s%s\n", pad, rule)
}

func writeIndented(w io.Writer, text string, indent int) {
	pad := strings.Repeat(" ", indent)

	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(w, "%s%s\n", pad, line)
	}
}
