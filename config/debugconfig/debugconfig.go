/*
 * PSX core - Debug options configuration.
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

// Package debugconfig maps the config file's debug= component names (spec
// section 6's ambient "--debug"/"debug=" surface) onto each package's own
// Debug(option) toggle, adapted from the teacher's package of the same name
// down to the handful of components this core exposes.
package debugconfig

import (
	"fmt"

	"github.com/rcornwell/psxcore/emu/cpu"
	"github.com/rcornwell/psxcore/emu/dynarec"
	"github.com/rcornwell/psxcore/emu/irq"
	"github.com/rcornwell/psxcore/emu/memory"
	"github.com/rcornwell/psxcore/emu/scheduler"
)

// Apply turns on verbose logging for every named component. Unknown
// component names are a configuration error (spec section 7 item 4: a
// malformed config is a fatal startup failure).
func Apply(components []string) error {
	for _, name := range components {
		if err := apply(name); err != nil {
			return err
		}
	}
	return nil
}

func apply(name string) error {
	switch name {
	case "memory":
		return memory.Debug("DEBUG")
	case "scheduler":
		return scheduler.Debug("DEBUG")
	case "irq":
		return irq.Debug("DEBUG")
	case "cpu":
		return cpu.Debug("DEBUG")
	case "dynarec":
		return dynarec.Debug("DEBUG")
	default:
		return fmt.Errorf("debugconfig: unknown component %q", name)
	}
}
