package config

import (
	"os"
	"path/filepath"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const ErrTypeInvalidConfig = "config_invalid"

const maxFileSize = 1 << 20

// File is the on-disk form of CullSettings. Omitted fields keep their
// current value when applied.
type File struct {
	RecentlyVisibleFrames     *int     `json:"recently_visible_frames,omitempty"`
	OcclusionEnabled          *bool    `json:"occlusion_enabled,omitempty"`
	NodeCapacity              *int     `json:"node_capacity,omitempty"`
	MinNodeHalfSize           *float32 `json:"min_node_half_size,omitempty"`
	OcclusionBoxPadding       *float32 `json:"occlusion_box_padding,omitempty"`
	FatalOnInvariantViolation *bool    `json:"fatal_on_invariant_violation,omitempty"`
}

// Load reads a JSON settings file.
func Load(path string) (*File, error) {
	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ".json" {
		return nil, errors.New("config file must have .json extension").
			WithType(ErrTypeInvalidConfig).
			WithTag("path", clean)
	}

	info, err := os.Stat(clean)
	if err != nil {
		return nil, errors.New("stat config file failed").
			WithType(ErrTypeInvalidConfig).
			WithTag("path", clean).
			Wrap(err)
	}
	if info.Size() > maxFileSize {
		return nil, errors.New("config file too large").
			WithType(ErrTypeInvalidConfig).
			WithTag("path", clean).
			WithTag("size", info.Size())
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, errors.New("read config file failed").
			WithType(ErrTypeInvalidConfig).
			WithTag("path", clean).
			Wrap(err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.New("decode config file failed").
			WithType(ErrTypeInvalidConfig).
			WithTag("path", clean).
			Wrap(err)
	}
	return &f, nil
}

// Apply writes every present field through the clamping setters.
func (f *File) Apply() {
	if f.RecentlyVisibleFrames != nil {
		SetRecentlyVisibleFrames(*f.RecentlyVisibleFrames)
	}
	if f.OcclusionEnabled != nil {
		SetOcclusionEnabled(*f.OcclusionEnabled)
	}
	if f.NodeCapacity != nil {
		SetNodeCapacity(*f.NodeCapacity)
	}
	if f.MinNodeHalfSize != nil {
		SetMinNodeHalfSize(*f.MinNodeHalfSize)
	}
	if f.OcclusionBoxPadding != nil {
		SetOcclusionBoxPadding(*f.OcclusionBoxPadding)
	}
	if f.FatalOnInvariantViolation != nil {
		SetFatalOnInvariantViolation(*f.FatalOnInvariantViolation)
	}
}

// LoadAndApply is Load followed by Apply.
func LoadAndApply(path string) error {
	f, err := Load(path)
	if err != nil {
		return err
	}
	f.Apply()
	return nil
}
