package core

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleLedger()[:2]))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, SheetHeader, records[0])
	assert.Equal(t, []string{"5", "2024-01-10", "Thuê phòng", "VAN_PHONG", "Công ty A", "CHI", "300000"}, records[1])
}
