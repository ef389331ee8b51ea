package logging_test

import (
	"testing"

	"github.com/haulfile/tax-engine/config"
	"github.com/haulfile/tax-engine/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_FollowsConfigEnvironment(t *testing.T) {
	prod, err := config.FromEnv(func(k string) string {
		if k == "TAXENGINE_ENV" {
			return "production"
		}
		return ""
	})
	require.NoError(t, err)
	require.True(t, prod.IsProduction())

	logger, err := logging.New(prod.IsProduction())
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel), "production logs start at info")

	dev, err := config.FromEnv(func(string) string { return "" })
	require.NoError(t, err)
	logger = logging.Must(dev.IsProduction())
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
