// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/manual-preview/pkg/types"
)

var sampleRecords = []types.ProductRecord{
	{ID: "1001", ManualData: []byte(`{"manual_filename":"report.pdf","manual_render_params":"-density 150"}`)},
	{ID: "1002", ManualData: []byte(`{"manual_filename":""}`)},
	{ID: "1003", ManualData: []byte(`garbage`)},
}

func TestFormatProductsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatProducts(&buf, sampleRecords, false))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "Product")
	assert.Contains(t, lines[2], "report.pdf")
	assert.Contains(t, lines[2], "-density 150")
	assert.Contains(t, lines[3], "(none)")
	assert.Contains(t, lines[4], "(invalid metadata)")
}

func TestFormatProductsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatProducts(&buf, sampleRecords, true))

	var rows []productRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "report.pdf", rows[0].Manual)
	assert.Equal(t, "-density 150", rows[0].RenderParams)
	assert.Empty(t, rows[1].Error)
	assert.NotEmpty(t, rows[2].Error)
}

func TestFormatProductsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatProducts(&buf, nil, false))
	assert.Equal(t, "No products found.\n", buf.String())
}
