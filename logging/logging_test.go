// SPDX-License-Identifier: EPL-2.0

package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ik5/coughcap/config"
	"github.com/ik5/coughcap/logging"
)

func TestNewWithWriter_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := logging.NewWithWriter("warn", &buf)
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept", zap.Int("bytes", 3))
	require.NoError(t, log.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "coughcap", entry["logger"])
	assert.InDelta(t, 3, entry["bytes"], 0)
}

func TestNewWithWriter_BadLevel(t *testing.T) {
	t.Parallel()

	_, err := logging.NewWithWriter("loud", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNew_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "coughcap.log")
	log, err := logging.New(config.LoggingConfig{Level: "info", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Info("to file")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}
