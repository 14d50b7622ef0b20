package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/adrg/xdg"

	cfg "github.com/NamanBalaji/segfetch/internal/config"
)

func withTempConfigHome(t *testing.T) (restore func(), dir string, file string) {
	t.Helper()
	orig := xdg.ConfigHome
	dir = t.TempDir()
	xdg.ConfigHome = dir
	restore = func() { xdg.ConfigHome = orig }
	file = filepath.Join(dir, "segfetch")
	return
}

func TestGetConfig_Table(t *testing.T) {
	restore, _, cfgFile := withTempConfigHome(t)
	defer restore()

	def := cfg.DefaultConfig()

	tests := []struct {
		name      string
		preWrite  bool
		contents  string
		expectErr error
		check     func(t *testing.T, got *cfg.Config, def cfg.Config)
	}{
		{
			name:     "missing_file_returns_defaults",
			preWrite: false,
			check: func(t *testing.T, got *cfg.Config, def cfg.Config) {
				if !reflect.DeepEqual(*got, def) {
					t.Fatalf("expected defaults\nwant: %#v\ngot:  %#v", def, *got)
				}
			},
		},
		{
			name:     "empty_file_returns_defaults",
			preWrite: true,
			contents: "",
			check: func(t *testing.T, got *cfg.Config, def cfg.Config) {
				if !reflect.DeepEqual(*got, def) {
					t.Fatalf("expected defaults\nwant: %#v\ngot:  %#v", def, *got)
				}
			},
		},
		{
			name:      "invalid_yaml_returns_error",
			preWrite:  true,
			contents:  ": not yaml",
			expectErr: errors.New("any"),
		},
		{
			name:      "unknown_store_is_rejected",
			preWrite:  true,
			contents:  "storage:\n  store: redis\n",
			expectErr: cfg.ErrInvalidStore,
		},
		{
			name:     "partial_override_and_fallback",
			preWrite: true,
			contents: `
http:
  chunks: 6
  progressInterval: 500ms
storage:
  store: bbolt
network:
  disableNetworkCheck: true
`,
			check: func(t *testing.T, got *cfg.Config, def cfg.Config) {
				if got.Http.Chunks != 6 {
					t.Fatalf("want http.chunks=6 got %d", got.Http.Chunks)
				}
				if got.Http.ProgressInterval != 500*time.Millisecond {
					t.Fatalf("want http.progressInterval=500ms got %s", got.Http.ProgressInterval)
				}
				if got.Http.BufferSize != def.Http.BufferSize {
					t.Fatalf("want http.bufferSize default %d got %d", def.Http.BufferSize, got.Http.BufferSize)
				}
				if got.Http.TempDir != def.Http.TempDir {
					t.Fatalf("want http.tempDir default %q got %q", def.Http.TempDir, got.Http.TempDir)
				}
				if got.Storage.Store != cfg.StoreBbolt {
					t.Fatalf("want storage.store=bbolt got %q", got.Storage.Store)
				}
				if got.Storage.DBPath != def.Storage.DBPath {
					t.Fatalf("want storage.dbPath default %q got %q", def.Storage.DBPath, got.Storage.DBPath)
				}
				if !got.Network.DisableCheck {
					t.Fatalf("want network.disableNetworkCheck=true")
				}
				if got.Network.Probe != def.Network.Probe {
					t.Fatalf("want network.networkProbe default %q got %q", def.Network.Probe, got.Network.Probe)
				}
			},
		},
		{
			name:     "explicit_zero_values_fall_back_to_defaults",
			preWrite: true,
			contents: `
http:
  dir: ""
  bufferSize: 0
  progressInterval: 0s
storage:
  dbPath: ""
`,
			check: func(t *testing.T, got *cfg.Config, def cfg.Config) {
				if !reflect.DeepEqual(*got.Http, *def.Http) {
					t.Fatalf("http zeros should fallback\nwant: %#v\ngot:  %#v", *def.Http, *got.Http)
				}
				if !reflect.DeepEqual(*got.Storage, *def.Storage) {
					t.Fatalf("storage zeros should fallback\nwant: %#v\ngot:  %#v", *def.Storage, *got.Storage)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_ = os.Remove(cfgFile)
			if tc.preWrite {
				if err := os.WriteFile(cfgFile, []byte(tc.contents), 0o600); err != nil {
					t.Fatalf("write test config: %v", err)
				}
			}
			got, err := cfg.GetConfig()
			if tc.expectErr != nil {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if errors.Is(tc.expectErr, cfg.ErrInvalidStore) && !errors.Is(err, cfg.ErrInvalidStore) {
					t.Fatalf("expected ErrInvalidStore, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetConfig error: %v", err)
			}
			tc.check(t, got, def)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	d := cfg.DefaultConfig()
	if d.Http == nil || d.Storage == nil || d.Network == nil {
		t.Fatalf("DefaultConfig has nil sections: %#v", d)
	}
	if d.Http.ProgressInterval != 2*time.Second || d.Http.BufferSize != 8*1024 {
		t.Errorf("unexpected http defaults: %#v", *d.Http)
	}
	if d.Storage.Store != cfg.StoreText {
		t.Errorf("want default store %q got %q", cfg.StoreText, d.Storage.Store)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestPath(t *testing.T) {
	restore, dir, file := withTempConfigHome(t)
	defer restore()

	if got := cfg.Path(); got != file || filepath.Dir(got) != dir {
		t.Errorf("Path() = %q; want %q", got, file)
	}
}
