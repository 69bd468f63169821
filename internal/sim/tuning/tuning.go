package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	FormatVersion int `yaml:"format_version"`

	VolumeW int `yaml:"volume_w"`
	VolumeD int `yaml:"volume_d"`
	VolumeH int `yaml:"volume_h"`

	FrameRateHz  int `yaml:"frame_rate_hz"`
	WaterFlowMs  int `yaml:"water_flow_ms"`
	LavaFlowMs   int `yaml:"lava_flow_ms"`
	HistoryCap   int `yaml:"history_cap"`
	AmbientLight int `yaml:"ambient_light"`

	Tiles Tiles `yaml:"tiles"`
}

type Tiles struct {
	Width       int `yaml:"width"`
	Height      int `yaml:"height"`
	BlockHeight int `yaml:"block_height"`
}

func Defaults() Tuning {
	return Tuning{
		FormatVersion: 1,
		VolumeW:       12,
		VolumeD:       12,
		VolumeH:       12,
		FrameRateHz:   30,
		WaterFlowMs:   400,
		LavaFlowMs:    2400,
		HistoryCap:    100,
		AmbientLight:  4,
		Tiles:         Tiles{Width: 64, Height: 32, BlockHeight: 38},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.VolumeW <= 0 || t.VolumeD <= 0 || t.VolumeH <= 0 {
		return fmt.Errorf("tuning: volume dimensions must be positive, got %dx%dx%d", t.VolumeW, t.VolumeD, t.VolumeH)
	}
	if t.FrameRateHz <= 0 {
		return fmt.Errorf("tuning: frame_rate_hz must be positive, got %d", t.FrameRateHz)
	}
	if t.WaterFlowMs <= 0 || t.LavaFlowMs <= 0 {
		return fmt.Errorf("tuning: flow delays must be positive, got water=%d lava=%d", t.WaterFlowMs, t.LavaFlowMs)
	}
	if t.HistoryCap <= 0 {
		return fmt.Errorf("tuning: history_cap must be positive, got %d", t.HistoryCap)
	}
	if t.AmbientLight < 0 || t.AmbientLight > 15 {
		return fmt.Errorf("tuning: ambient_light must be in [0,15], got %d", t.AmbientLight)
	}
	if t.Tiles.Width <= 0 || t.Tiles.Height <= 0 || t.Tiles.BlockHeight <= 0 {
		return fmt.Errorf("tuning: tile metrics must be positive")
	}
	return nil
}
