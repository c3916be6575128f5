package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/discount-quote/internal/obs"
)

func TestReportStartupErrorIsStructured(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerTo(&buf, "json", "info")

	reportStartupError(logger, errors.New("QUOTE_MAX_DISCOUNTS must be positive, got 0"), "load config")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "fatal", entry["level"])
	require.Equal(t, "load config", entry["message"])
	require.Equal(t, "QUOTE_MAX_DISCOUNTS must be positive, got 0", entry["error"])
}
