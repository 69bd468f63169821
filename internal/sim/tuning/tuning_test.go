package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Defaults() {
		t.Fatalf("shipped config drifted from defaults: %+v", cfg)
	}
}

func TestLoad_OverridesKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	doc := "water_flow_ms: 150\nvolume_w: 32\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WaterFlowMs != 150 || cfg.VolumeW != 32 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.LavaFlowMs != Defaults().LavaFlowMs || cfg.Tiles != Defaults().Tiles {
		t.Fatalf("untouched fields drifted: %+v", cfg)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero volume":    "volume_w: 0\n",
		"zero rate":      "frame_rate_hz: 0\n",
		"negative flow":  "water_flow_ms: -5\n",
		"zero history":   "history_cap: 0\n",
		"ambient range":  "ambient_light: 16\n",
		"zero tile size": "tiles:\n  width: 0\n",
	}
	for name, doc := range cases {
		path := filepath.Join(t.TempDir(), "tuning.yaml")
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatalf("%s: write: %v", name, err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: accepted invalid config", name)
		}
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("volume_w: [\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("accepted unparseable yaml")
	}
}
