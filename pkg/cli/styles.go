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

import "github.com/charmbracelet/lipgloss"

// Dracula theme colors.
const (
	draculaGreen   = "#50FA7B"
	draculaRed     = "#FF5555"
	draculaYellow  = "#F1FA8C"
	draculaComment = "#6272A4"
	draculaPurple  = "#BD93F9"
)

type styles struct {
	title, ok, failed, warn, muted lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Foreground(lipgloss.Color(draculaPurple)).Bold(true),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color(draculaGreen)),
		failed: lipgloss.NewStyle().Foreground(lipgloss.Color(draculaRed)).Bold(true),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color(draculaYellow)),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment)),
	}
}
