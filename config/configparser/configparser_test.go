package configparser

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "psx.cfg")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadMinimal(t *testing.T) {
	path := writeConfig(t, "bios=/roms/scph1001.bin\nexe=/games/demo.exe\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BIOSPath != "/roms/scph1001.bin" {
		t.Errorf("BIOSPath = %q", cfg.BIOSPath)
	}
	if cfg.EXEPath != "/games/demo.exe" {
		t.Errorf("EXEPath = %q", cfg.EXEPath)
	}
}

func TestLoadCommentsAndBlankLines(t *testing.T) {
	path := writeConfig(t, "# comment line\n\nbios=/roms/scph1001.bin # trailing comment\ndisc=/games/demo.iso\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BIOSPath != "/roms/scph1001.bin" {
		t.Errorf("BIOSPath = %q", cfg.BIOSPath)
	}
	if cfg.DiscPath != "/games/demo.iso" {
		t.Errorf("DiscPath = %q", cfg.DiscPath)
	}
}

func TestLoadDebugFlags(t *testing.T) {
	path := writeConfig(t, "bios=/roms/scph1001.bin\ndisc=/games/demo.iso\ndebug=dynarec, cpu ,memory\nlog=/tmp/psx.log\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"dynarec", "cpu", "memory"}
	if len(cfg.Debug) != len(want) {
		t.Fatalf("Debug = %v, want %v", cfg.Debug, want)
	}
	for i, comp := range want {
		if cfg.Debug[i] != comp {
			t.Errorf("Debug[%d] = %q, want %q", i, cfg.Debug[i], comp)
		}
	}
	if cfg.LogPath != "/tmp/psx.log" {
		t.Errorf("LogPath = %q", cfg.LogPath)
	}
}

func TestLoadMissingBIOS(t *testing.T) {
	path := writeConfig(t, "exe=/games/demo.exe\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a missing bios= directive")
	}
}

func TestLoadMissingBootTarget(t *testing.T) {
	path := writeConfig(t, "bios=/roms/scph1001.bin\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error when neither exe= nor disc= is given")
	}
}

func TestLoadUnknownDirective(t *testing.T) {
	path := writeConfig(t, "bios=/roms/scph1001.bin\nexe=/games/demo.exe\nchannel0=tape\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unrecognized directive")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.cfg")); err == nil {
		t.Fatal("expected an error for a nonexistent config file")
	}
}
