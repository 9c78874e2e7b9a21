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

// Register addresses of the peripherals.
const (
	AddrFND1           = 0x003
	AddrFND2           = 0x004
	AddrStepMotorOn    = 0x00C
	AddrStepMotorDir   = 0x00E
	AddrStepMotorSpeed = 0x010
	AddrLED            = 0x016
	AddrPushSwitch     = 0x050
	AddrBuzzer         = 0x070
	AddrTextLCD        = 0x090
	AddrDotMatrix      = 0x210
)

const (
	NumFNDDigits     = 4
	NumDotMatrixRows = 10
	NumPushSwitches  = 9
	TextLCDSize      = 32
)

// Peripheral names.
const (
	NameLED        = "led"
	NameFND        = "fnd"
	NameDotMatrix  = "dot"
	NameTextLCD    = "text-lcd"
	NameBuzzer     = "buzzer"
	NamePushSwitch = "push-switch"
	NameStepMotor  = "step-motor"
)

var kinds = map[string]*kind{
	// one byte, one bit per LED
	NameLED: {
		minSize: 1, maxSize: 1,
		write: writeSingle(AddrLED),
		read:  readSingle(AddrLED),
	},
	// four decimal digits, two per register
	NameFND: {
		minSize: NumFNDDigits, maxSize: NumFNDDigits,
		write: writeFND,
		read:  readFND,
	},
	// one byte per row, seven columns
	NameDotMatrix: {
		minSize: 1, maxSize: NumDotMatrixRows,
		write:    writeSequential(AddrDotMatrix, 0x7F),
		shadowed: true,
	},
	// two lines of 16 characters
	NameTextLCD: {
		minSize: 1, maxSize: TextLCDSize,
		write:    writeSequential(AddrTextLCD, 0xFF),
		shadowed: true,
	},
	NameBuzzer: {
		minSize: 1, maxSize: 1,
		write: writeSingle(AddrBuzzer),
		read:  readSingle(AddrBuzzer),
	},
	// one byte per button, non-zero while pressed
	NamePushSwitch: {
		read: readSequential(AddrPushSwitch, NumPushSwitches),
	},
	// on/off, direction, speed
	NameStepMotor: {
		minSize: 3, maxSize: 3,
		write:    writeStepMotor,
		shadowed: true,
	},
}

func writeSingle(addr uint) func(Bus, []byte) ([]byte, error) {
	return func(bus Bus, data []byte) ([]byte, error) {
		if err := bus.Write(addr, data[0]); err != nil {
			return nil, err
		}
		return data[:1], nil
	}
}

func readSingle(addr uint) func(Bus) ([]byte, error) {
	return func(bus Bus) ([]byte, error) {
		v, err := bus.Read(addr)
		if err != nil {
			return nil, err
		}
		return []byte{v}, nil
	}
}

func writeSequential(base uint, mask byte) func(Bus, []byte) ([]byte, error) {
	return func(bus Bus, data []byte) ([]byte, error) {
		written := make([]byte, len(data))
		for i, v := range data {
			written[i] = v & mask
			if err := bus.Write(base+uint(i), written[i]); err != nil {
				return nil, err
			}
		}
		return written, nil
	}
}

func readSequential(base uint, n int) func(Bus) ([]byte, error) {
	return func(bus Bus) ([]byte, error) {
		data := make([]byte, n)
		for i := range data {
			v, err := bus.Read(base + uint(i))
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return data, nil
	}
}

// PackFND packs four digits into the two display registers.
func PackFND(digits []byte) (hi, lo byte) {
	return (digits[0]&0xF)<<4 | digits[1]&0xF, (digits[2]&0xF)<<4 | digits[3]&0xF
}

// UnpackFND is the inverse of PackFND.
func UnpackFND(hi, lo byte) []byte {
	return []byte{hi >> 4 & 0xF, hi & 0xF, lo >> 4 & 0xF, lo & 0xF}
}

func writeFND(bus Bus, data []byte) ([]byte, error) {
	hi, lo := PackFND(data)
	if err := bus.Write(AddrFND1, hi); err != nil {
		return nil, err
	}
	if err := bus.Write(AddrFND2, lo); err != nil {
		return nil, err
	}
	return UnpackFND(hi, lo), nil
}

func readFND(bus Bus) ([]byte, error) {
	hi, err := bus.Read(AddrFND1)
	if err != nil {
		return nil, err
	}
	lo, err := bus.Read(AddrFND2)
	if err != nil {
		return nil, err
	}
	return UnpackFND(hi, lo), nil
}

func writeStepMotor(bus Bus, data []byte) ([]byte, error) {
	written := []byte{data[0] & 0xF, data[1] & 0xF, data[2]}
	for i, addr := range []uint{AddrStepMotorOn, AddrStepMotorDir, AddrStepMotorSpeed} {
		if err := bus.Write(addr, written[i]); err != nil {
			return nil, err
		}
	}
	return written, nil
}
