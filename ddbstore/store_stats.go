package ddbstore

import "sync/atomic"

// Stats counts operations since the store was opened.
type Stats struct {
	Puts    uint64
	Deletes uint64
	Queries uint64
	// Resolved counts entries turned into records by queries and scans,
	// before filtering.
	Resolved uint64
	// PrimaryLookups counts reads of the table for index entries that do
	// not project every attribute.
	PrimaryLookups uint64
}

type stats struct {
	puts           atomic.Uint64
	deletes        atomic.Uint64
	queries        atomic.Uint64
	resolved       atomic.Uint64
	primaryLookups atomic.Uint64
}

func (s *stats) snapshot() Stats {
	return Stats{
		Puts:           s.puts.Load(),
		Deletes:        s.deletes.Load(),
		Queries:        s.queries.Load(),
		Resolved:       s.resolved.Load(),
		PrimaryLookups: s.primaryLookups.Load(),
	}
}
