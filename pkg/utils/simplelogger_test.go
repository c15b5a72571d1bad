package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatLine(t *testing.T) {
	ts := time.Date(2025, 12, 27, 15, 30, 0, 0, time.UTC)

	line := formatLine(ts, "INFO", "Upserted batch", "batch", 1, "rows", 500)
	assert.Equal(t, "[2025-12-27 15:30:00] INFO: Upserted batch batch=1 rows=500\n", line)

	// непарный ключ отбрасывается
	line = formatLine(ts, "WARN", "odd", "dangling")
	assert.Equal(t, "[2025-12-27 15:30:00] WARN: odd\n", line)
}

func TestSetEcho_WritesWithoutLogFile(t *testing.T) {
	var buf bytes.Buffer
	SetEcho(&buf)
	defer SetEcho(nil)

	Warn("Image fetch failed", "sku", "LD-1")

	assert.Contains(t, buf.String(), "WARN: Image fetch failed sku=LD-1")
}
