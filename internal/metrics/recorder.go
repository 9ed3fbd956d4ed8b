package metrics

// ObserveLoad records the outcome of one source load and, on success, its row counts.
func ObserveLoad(source, outcome string, records, dropped int) {
	SourceLoads.WithLabelValues(source, outcome).Inc()
	if outcome == OutcomeOK || outcome == OutcomeCacheHit {
		SourceRecords.WithLabelValues(source).Set(float64(records))
		SourceDroppedRows.WithLabelValues(source).Set(float64(dropped))
	}
}

// Load outcomes.
const (
	OutcomeOK                 = "ok"
	OutcomeCacheHit           = "cache_hit"
	OutcomeUnreadableEncoding = "unreadable_encoding"
	OutcomeMalformed          = "malformed"
	OutcomeMissingColumns     = "missing_columns"
	OutcomeError              = "error"
)
