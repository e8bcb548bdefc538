// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads DetectorConfig, the small set of tunables a
// detection-core process reads at startup, via HCL through hclsimple.
// Rule text itself is parsed by an external loader (spec.md §1), so this
// package only ever sees engine tunables.
package config

import (
	"github.com/hashicorp/hcl/v2/hclsimple"

	ferrors "lorasec.io/detect/internal/errors"
)

// DetectorConfig is the full set of startup tunables the detection core
// reads once, before compiling any rule. Every field has a default
// DefaultConfig is prepared to return, so an empty or partial HCL file
// decodes to a usable configuration.
type DetectorConfig struct {
	// StreamPoolSize is the stream-message pool's initial size (spec.md
	// §4.5).
	StreamPoolSize int `hcl:"stream_pool_size,optional"`
	// StreamPoolGrowthStep is how many messages the pool allocates each
	// time it runs dry (spec.md §4.5).
	StreamPoolGrowthStep int `hcl:"stream_pool_growth_step,optional"`
	// AppLayerMaxSearchLen caps how many bytes of a flow direction's
	// accumulated buffer the MPM search window considers (spec.md §4.3
	// step 2's max_len clip), independent of any one signature's depth.
	AppLayerMaxSearchLen int `hcl:"app_layer_max_search_len,optional"`
	// SignatureCapacityHint is an advisory sizing figure. It is loaded and
	// logged at startup, but nothing in this module sizes a structure from
	// it: C2's bitmaps and the keyword RuleSet are sized from the actual
	// rule count CompilePipeline receives.
	SignatureCapacityHint int `hcl:"signature_capacity_hint,optional"`
}

const (
	defaultStreamPoolSize        = 5000
	defaultStreamPoolGrowthStep  = 250
	defaultAppLayerMaxSearchLen  = 1500
	defaultSignatureCapacityHint = 1024
)

// DefaultConfig returns the tunables the detection core uses when no HCL
// file overrides them.
func DefaultConfig() DetectorConfig {
	return DetectorConfig{
		StreamPoolSize:        defaultStreamPoolSize,
		StreamPoolGrowthStep:  defaultStreamPoolGrowthStep,
		AppLayerMaxSearchLen:  defaultAppLayerMaxSearchLen,
		SignatureCapacityHint: defaultSignatureCapacityHint,
	}
}

// applyDefaults fills in any zero-valued field left unset by the HCL
// source, so a partial or empty config file still decodes to a usable
// configuration.
func (c *DetectorConfig) applyDefaults() {
	d := DefaultConfig()
	if c.StreamPoolSize <= 0 {
		c.StreamPoolSize = d.StreamPoolSize
	}
	if c.StreamPoolGrowthStep <= 0 {
		c.StreamPoolGrowthStep = d.StreamPoolGrowthStep
	}
	if c.AppLayerMaxSearchLen <= 0 {
		c.AppLayerMaxSearchLen = d.AppLayerMaxSearchLen
	}
	if c.SignatureCapacityHint <= 0 {
		c.SignatureCapacityHint = d.SignatureCapacityHint
	}
}

// LoadFile decodes path as HCL into a DetectorConfig, backfilling any
// field the file left unset with DefaultConfig's value.
func LoadFile(path string) (DetectorConfig, error) {
	var cfg DetectorConfig
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return DetectorConfig{}, ferrors.Wrapf(err, ferrors.KindValidation, "config: failed to decode %s", path)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadBytes decodes HCL source already in memory, as LoadFile does for a
// file on disk. filename is used only for HCL's own error messages.
func LoadBytes(src []byte, filename string) (DetectorConfig, error) {
	var cfg DetectorConfig
	if err := hclsimple.Decode(filename, src, nil, &cfg); err != nil {
		return DetectorConfig{}, ferrors.Wrapf(err, ferrors.KindValidation, "config: failed to decode %s", filename)
	}
	cfg.applyDefaults()
	return cfg, nil
}
