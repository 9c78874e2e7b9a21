// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2026 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package peripheral

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// TextLCDColumns is the width of one line of the text LCD.
const TextLCDColumns = TextLCDSize / 2

// TextLCD is the two line character display.
type TextLCD struct {
	*Peripheral
}

// FormatLines lays out two lines for the display, padding or truncating
// each to TextLCDColumns. The display only has an ASCII character set;
// other characters are shown as '?', once per column they would take.
func FormatLines(line1, line2 string) []byte {
	var buf strings.Builder
	for _, line := range []string{line1, line2} {
		line = strings.Map(func(r rune) rune {
			if r < 0x20 || r == 0x7F {
				return ' '
			}
			return r
		}, line)
		var ascii strings.Builder
		for _, r := range runewidth.Truncate(line, TextLCDColumns, "") {
			if r < 0x7F {
				ascii.WriteRune(r)
				continue
			}
			ascii.WriteString(strings.Repeat("?", runewidth.RuneWidth(r)))
		}
		buf.WriteString(runewidth.FillRight(ascii.String(), TextLCDColumns))
	}
	return []byte(buf.String())
}

// SetLines shows two lines of text.
func (t *TextLCD) SetLines(line1, line2 string) error {
	return t.Write(FormatLines(line1, line2))
}

// SetText shows text, a newline starting the second line.
func (t *TextLCD) SetText(text string) error {
	line1, line2, _ := strings.Cut(text, "\n")
	return t.SetLines(line1, line2)
}
