/*
   Core: emulator wiring and the cooperative execution loop.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package core wires the leaf components (memory, scheduler, irq, cpu) to
// the dynarec engine and exposes the single-threaded cooperative run loop
// described in spec section 4.5 and section 5. BIOS loading is the only
// host-side I/O this package performs; ISO/EXE boot-image loading is an
// out-of-scope collaborator per spec section 1, so an executable or disc
// path from the config file is retained only as a resolved string for that
// (unimplemented) collaborator to consume later.
package core

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rcornwell/psxcore/emu/cpu"
	"github.com/rcornwell/psxcore/emu/dynarec"
	"github.com/rcornwell/psxcore/emu/irq"
	"github.com/rcornwell/psxcore/emu/memory"
	"github.com/rcornwell/psxcore/emu/scheduler"

	"log/slog"

	config "github.com/rcornwell/psxcore/config/configparser"
)

// Core owns the emulator's pinned state and the dynarec engine built on
// top of it, plus the goroutine lifecycle needed to start/stop the
// Engine.Run loop from a CLI front end (spec section 5: the hot loop
// itself never spawns a goroutine or crosses a channel; this is the one
// goroutine boundary around it, matching the teacher's core.Start/Stop
// shape).
type Core struct {
	Mem   *memory.Memory
	Sched *scheduler.Scheduler
	IRQ   *irq.Controller
	CPU   *cpu.State

	Engine *dynarec.Engine

	// BootPath/BootIsDisc record what the config named to boot; the actual
	// EXE/ISO loader is an out-of-scope collaborator (spec section 1).
	BootPath   string
	BootIsDisc bool

	wg   sync.WaitGroup
	done chan struct{}
}

// New builds the core from a resolved config, per the dependency order in
// spec section 9: memory -> interrupts -> scheduler -> CPU -> dynarec.
func New(cfg *config.Config) (*Core, error) {
	bios, err := os.ReadFile(cfg.BIOSPath)
	if err != nil {
		return nil, fmt.Errorf("core: loading bios: %w", err)
	}
	if len(bios) != memory.BIOSSize {
		return nil, fmt.Errorf("core: bios image %q is %d bytes, want %d", cfg.BIOSPath, len(bios), memory.BIOSSize)
	}

	m := memory.New()
	m.LoadBIOS(bios)
	ic := irq.New()
	s := scheduler.New()
	c := cpu.New()

	eng, err := dynarec.New(m, s, ic, c)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	bootPath, isDisc := cfg.DiscPath, true
	if cfg.EXEPath != "" {
		bootPath, isDisc = cfg.EXEPath, false
	}

	return &Core{
		Mem:        m,
		Sched:      s,
		IRQ:        ic,
		CPU:        c,
		Engine:     eng,
		BootPath:   bootPath,
		BootIsDisc: isDisc,
		done:       make(chan struct{}),
	}, nil
}

// Start runs the execution loop in its own goroutine until Stop is called.
func (c *Core) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.Engine.Run(func() bool {
			select {
			case <-c.done:
				return true
			default:
				return false
			}
		})
	}()
}

// Stop signals the run loop to exit and waits for it, with a timeout so a
// wedged loop cannot hang the process shutdown path.
func (c *Core) Stop() {
	close(c.done)
	waited := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-time.After(time.Second):
		slog.Warn("core: timed out waiting for the execution loop to stop")
	}
	if err := c.Engine.Close(); err != nil {
		slog.Error("core: closing dynarec engine", "error", err)
	}
}
