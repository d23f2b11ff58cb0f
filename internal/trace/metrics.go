package trace

import "strconv"

// Metrics holds the values derived from one trace row.
type Metrics struct {
	TimeUS           float64 // kernel execution time in microseconds
	TotalWorkgroups  float64 // dispatched workgroups across all grid dims
	CUUtilizationPct float64 // workgroups relative to available CUs, capped at 100
}

// Derive computes metrics for a single trace row against the system's
// compute unit count. Pure; safe to call concurrently on disjoint rows.
//
// Workgroup-size dimensions are floored at 1 so a malformed or zero
// dimension cannot divide by zero; the row is still emitted rather than
// rejected. Timestamps are not clamped, so a malformed row may yield a
// negative time.
func Derive(row Row, numCUs int) Metrics {
	startTS := parseFloat(row.Field(FieldStartTimestamp))
	endTS := parseFloat(row.Field(FieldEndTimestamp))
	timeUS := (endTS - startTS) / 1000.0

	wgX := atLeastOne(parseFloat(row.Field(FieldWorkgroupSizeX)))
	wgY := atLeastOne(parseFloat(row.Field(FieldWorkgroupSizeY)))
	wgZ := atLeastOne(parseFloat(row.Field(FieldWorkgroupSizeZ)))

	gridX := parseFloat(row.Field(FieldGridSizeX))
	gridY := parseFloat(row.Field(FieldGridSizeY))
	gridZ := parseFloat(row.Field(FieldGridSizeZ))

	totalWorkgroups := (gridX / wgX) * (gridY / wgY) * (gridZ / wgZ)

	var utilization float64
	if numCUs > 0 {
		utilization = totalWorkgroups / float64(numCUs)
		if utilization > 1.0 {
			utilization = 1.0
		}
		utilization *= 100.0
	}

	return Metrics{
		TimeUS:           timeUS,
		TotalWorkgroups:  totalWorkgroups,
		CUUtilizationPct: utilization,
	}
}

// parseFloat coerces a field value to float64, defaulting to 0 for
// empty or unparsable input. Absent and malformed fields are therefore
// indistinguishable downstream; tightening this would flood diagnostics
// on noisy traces.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func atLeastOne(v float64) float64 {
	if v < 1 {
		return 1
	}
	return v
}
