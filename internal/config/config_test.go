// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "lorasec.io/detect/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5000, cfg.StreamPoolSize)
	assert.Equal(t, 250, cfg.StreamPoolGrowthStep)
	assert.Equal(t, 1500, cfg.AppLayerMaxSearchLen)
	assert.Equal(t, 1024, cfg.SignatureCapacityHint)
}

func TestLoadBytes_OverridesOnlySetFields(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
stream_pool_size = 20000
`), "test.hcl")
	require.NoError(t, err)
	assert.Equal(t, 20000, cfg.StreamPoolSize)
	assert.Equal(t, 250, cfg.StreamPoolGrowthStep, "unset fields still backfill from DefaultConfig")
}

func TestLoadBytes_EmptyFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadBytes([]byte(``), "empty.hcl")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadBytes_InvalidHCLFailsWithValidationKind(t *testing.T) {
	_, err := LoadBytes([]byte(`stream_pool_size = `), "bad.hcl")
	require.Error(t, err)
	assert.Equal(t, ferrors.KindValidation, ferrors.GetKind(err))
}
