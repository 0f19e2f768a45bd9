/*
 * PSX core - Configuration file parser
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package configparser reads the core's configuration file (spec section 6):
// a plain key=value format, much thinner than a device-configuration DSL,
// since this core only ever consumes the resolved paths and debug flags it
// returns rather than driving a whole device tree from it. Grounded on the
// teacher's config/configparser line-scanner structure (comment handling,
// one directive per line), cut down to the handful of keys this core needs.
package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Config is the resolved set of startup parameters spec section 6 describes:
// a BIOS image, a guest executable or disc image to boot, and optional
// logging/debug settings.
type Config struct {
	BIOSPath string   // required: 512 KiB BIOS image, loaded at 0x1FC00000.
	EXEPath  string   // optional: direct PS-X EXE boot.
	DiscPath string   // optional: ISO disc boot.
	LogPath  string   // optional: file log.Writer destination.
	Debug    []string // optional: per-component debug flags (memory, scheduler, irq, cpu, dynarec).
}

// recognized keys. Anything else is a parse error (spec section 7 item 4:
// a malformed config is a fatal startup failure, not a silently ignored
// line).
const (
	keyBIOS  = "bios"
	keyEXE   = "exe"
	keyDisc  = "disc"
	keyLog   = "log"
	keyDebug = "debug"
)

// Load reads and parses the config file at path. '#' starts a line comment;
// blank lines are ignored; every other line must be key=value.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("configparser: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	reader := bufio.NewReader(file)
	lineNumber := 0
	for {
		raw, err := reader.ReadString('\n')
		lineNumber++
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("configparser: line %d: %w", lineNumber, err)
		}

		line := strings.TrimSpace(raw)
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			if err != nil {
				break
			}
			continue
		}

		if parseErr := cfg.parseLine(line); parseErr != nil {
			return nil, fmt.Errorf("configparser: line %d: %w", lineNumber, parseErr)
		}
		if err != nil {
			break
		}
	}

	if cfg.BIOSPath == "" {
		return nil, errors.New("configparser: missing required bios= directive")
	}
	if cfg.EXEPath == "" && cfg.DiscPath == "" {
		return nil, errors.New("configparser: neither exe= nor disc= given, nothing to boot")
	}
	return cfg, nil
}

func (cfg *Config) parseLine(line string) error {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", line)
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("key %q has no value", key)
	}

	switch key {
	case keyBIOS:
		cfg.BIOSPath = value
	case keyEXE:
		cfg.EXEPath = value
	case keyDisc:
		cfg.DiscPath = value
	case keyLog:
		cfg.LogPath = value
	case keyDebug:
		for _, comp := range strings.Split(value, ",") {
			comp = strings.ToLower(strings.TrimSpace(comp))
			if comp != "" {
				cfg.Debug = append(cfg.Debug, comp)
			}
		}
	default:
		return fmt.Errorf("unknown directive %q", key)
	}
	return nil
}
