package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rowWith(fields map[string]string) Row {
	index := make(map[string]int, len(fields))
	record := make([]string, 0, len(fields))
	for name, value := range fields {
		index[name] = len(record)
		record = append(record, value)
	}
	return Row{index: index, record: record}
}

func TestDerive_TimeUS(t *testing.T) {
	row := rowWith(map[string]string{
		FieldStartTimestamp: "1000",
		FieldEndTimestamp:   "5000",
	})

	m := Derive(row, 100)
	assert.InDelta(t, 4.0, m.TimeUS, 1e-9)
}

func TestDerive_NegativeTimePassesThrough(t *testing.T) {
	row := rowWith(map[string]string{
		FieldStartTimestamp: "5000",
		FieldEndTimestamp:   "1000",
	})

	m := Derive(row, 100)
	assert.InDelta(t, -4.0, m.TimeUS, 1e-9)
}

func TestDerive_ZeroWorkgroupDimsFlooredAtOne(t *testing.T) {
	row := rowWith(map[string]string{
		FieldWorkgroupSizeX: "0",
		FieldWorkgroupSizeY: "0",
		FieldWorkgroupSizeZ: "0",
		FieldGridSizeX:      "256",
		FieldGridSizeY:      "1",
		FieldGridSizeZ:      "1",
	})

	m := Derive(row, 100)
	assert.InDelta(t, 256.0, m.TotalWorkgroups, 1e-9)
}

func TestDerive_WorkgroupsInvariantZeroVsOne(t *testing.T) {
	zeros := rowWith(map[string]string{
		FieldWorkgroupSizeX: "0",
		FieldWorkgroupSizeY: "0",
		FieldWorkgroupSizeZ: "0",
		FieldGridSizeX:      "128",
		FieldGridSizeY:      "4",
		FieldGridSizeZ:      "2",
	})
	ones := rowWith(map[string]string{
		FieldWorkgroupSizeX: "1",
		FieldWorkgroupSizeY: "1",
		FieldWorkgroupSizeZ: "1",
		FieldGridSizeX:      "128",
		FieldGridSizeY:      "4",
		FieldGridSizeZ:      "2",
	})

	assert.Equal(t, Derive(zeros, 64).TotalWorkgroups, Derive(ones, 64).TotalWorkgroups)
}

func TestDerive_UtilizationCappedAt100(t *testing.T) {
	row := rowWith(map[string]string{
		FieldWorkgroupSizeX: "1",
		FieldWorkgroupSizeY: "1",
		FieldWorkgroupSizeZ: "1",
		FieldGridSizeX:      "256",
		FieldGridSizeY:      "1",
		FieldGridSizeZ:      "1",
	})

	m := Derive(row, 100)
	assert.InDelta(t, 256.0, m.TotalWorkgroups, 1e-9)
	assert.InDelta(t, 100.0, m.CUUtilizationPct, 1e-9)
}

func TestDerive_UtilizationPartial(t *testing.T) {
	row := rowWith(map[string]string{
		FieldWorkgroupSizeX: "64",
		FieldWorkgroupSizeY: "1",
		FieldWorkgroupSizeZ: "1",
		FieldGridSizeX:      "2048",
		FieldGridSizeY:      "1",
		FieldGridSizeZ:      "1",
	})

	// 2048/64 = 32 workgroups on 128 CUs -> 25%
	m := Derive(row, 128)
	assert.InDelta(t, 32.0, m.TotalWorkgroups, 1e-9)
	assert.InDelta(t, 25.0, m.CUUtilizationPct, 1e-9)
}

func TestDerive_ZeroOrNegativeCUs(t *testing.T) {
	row := rowWith(map[string]string{
		FieldWorkgroupSizeX: "1",
		FieldWorkgroupSizeY: "1",
		FieldWorkgroupSizeZ: "1",
		FieldGridSizeX:      "256",
		FieldGridSizeY:      "1",
		FieldGridSizeZ:      "1",
	})

	assert.Zero(t, Derive(row, 0).CUUtilizationPct)
	assert.Zero(t, Derive(row, -5).CUUtilizationPct)
}

func TestDerive_UtilizationBounds(t *testing.T) {
	cases := []struct {
		name string
		grid string
	}{
		{"tiny", "1"},
		{"exact", "128"},
		{"huge", "1000000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := rowWith(map[string]string{
				FieldWorkgroupSizeX: "1",
				FieldWorkgroupSizeY: "1",
				FieldWorkgroupSizeZ: "1",
				FieldGridSizeX:      tc.grid,
				FieldGridSizeY:      "1",
				FieldGridSizeZ:      "1",
			})

			m := Derive(row, 128)
			assert.GreaterOrEqual(t, m.CUUtilizationPct, 0.0)
			assert.LessOrEqual(t, m.CUUtilizationPct, 100.0)
		})
	}
}

func TestDerive_MalformedNumericsCoerceToZero(t *testing.T) {
	row := rowWith(map[string]string{
		FieldStartTimestamp: "not-a-number",
		FieldEndTimestamp:   "5000",
		FieldWorkgroupSizeX: "garbage",
		FieldGridSizeX:      "oops",
	})

	m := Derive(row, 100)
	assert.InDelta(t, 5.0, m.TimeUS, 1e-9)
	assert.Zero(t, m.TotalWorkgroups)
}

func TestDerive_MissingFieldsDefaultToZero(t *testing.T) {
	m := Derive(rowWith(map[string]string{}), 100)
	assert.Zero(t, m.TimeUS)
	assert.Zero(t, m.TotalWorkgroups)
	assert.Zero(t, m.CUUtilizationPct)
}
