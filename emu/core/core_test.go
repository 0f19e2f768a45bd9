package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	config "github.com/rcornwell/psxcore/config/configparser"
	"github.com/rcornwell/psxcore/emu/memory"
)

func writeBIOS(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bios.bin")
	if err := os.WriteFile(path, make([]byte, memory.BIOSSize), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestNewWiresEngineFromConfig(t *testing.T) {
	cfg := &config.Config{BIOSPath: writeBIOS(t), EXEPath: "/games/demo.exe"}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Engine.Close()

	if c.BootIsDisc {
		t.Error("expected BootIsDisc=false when EXEPath is set")
	}
	if c.BootPath != "/games/demo.exe" {
		t.Errorf("BootPath = %q", c.BootPath)
	}
}

func TestNewRejectsMissingBIOS(t *testing.T) {
	cfg := &config.Config{BIOSPath: filepath.Join(t.TempDir(), "missing.bin"), DiscPath: "/games/demo.iso"}

	if _, err := New(cfg); err == nil {
		t.Fatal("expected an error for a missing bios file")
	}
}

func TestNewRejectsWrongSizedBIOS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bios.bin")
	if err := os.WriteFile(path, make([]byte, 16), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg := &config.Config{BIOSPath: path, DiscPath: "/games/demo.iso"}

	if _, err := New(cfg); err == nil {
		t.Fatal("expected an error for a wrong-sized bios image")
	}
}

func TestStartStop(t *testing.T) {
	cfg := &config.Config{BIOSPath: writeBIOS(t), DiscPath: "/games/demo.iso"}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Start()
	time.Sleep(10 * time.Millisecond)
	c.Stop()
}
