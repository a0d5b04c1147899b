package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjust(t *testing.T) {
	assert.Equal(t, logrus.WarnLevel, Adjust(logrus.WarnLevel, 0, false))
	assert.Equal(t, logrus.InfoLevel, Adjust(logrus.WarnLevel, 1, false))
	assert.Equal(t, logrus.DebugLevel, Adjust(logrus.WarnLevel, 2, false))
	assert.Equal(t, logrus.TraceLevel, Adjust(logrus.WarnLevel, 9, false))
	assert.Equal(t, logrus.ErrorLevel, Adjust(logrus.DebugLevel, 2, true))
}

func TestNew_Defaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Settings{Out: &buf})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Settings{Level: "info", Format: "json", Out: &buf})
	require.NoError(t, err)

	logger.WithField("path", "a/0").Info("wrote")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "a/0", line["path"])
	assert.Equal(t, "wrote", line["msg"])
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(Settings{Level: "chatty"})
	assert.Error(t, err)
	_, err = New(Settings{Format: "yaml"})
	assert.Error(t, err)
}
