package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug", "json")
	l.WithFields(logrus.Fields{"adapter": "smartorder"}).Info("Adapter operation: sync")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "smartorder", entry["adapter"])
	assert.Equal(t, "Adapter operation: sync", entry["msg"])
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	l := NewWithWriter(&bytes.Buffer{}, "loud", "text")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}
