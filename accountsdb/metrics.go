// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package accountsdb

import "github.com/VictoriaMetrics/metrics"

var (
	mxLoads         = metrics.GetOrCreateCounter(`accountsdb_loads_total`)
	mxLoadMisses    = metrics.GetOrCreateCounter(`accountsdb_loads_total{found="no"}`)
	mxFilterSkips   = metrics.GetOrCreateCounter(`accountsdb_filter_skips_total`)
	mxReadCacheHits = metrics.GetOrCreateCounter(`accountsdb_read_cache_hits_total`)
	mxWrites        = metrics.GetOrCreateCounter(`accountsdb_writes_total`)
	mxFlushedBytes  = metrics.GetOrCreateCounter(`accountsdb_flushed_bytes_total`)
	mxRoots         = metrics.GetOrCreateCounter(`accountsdb_roots_total`)
	mxHalts         = metrics.GetOrCreateCounter(`accountsdb_halts_total`)

	mxCleanedEntries   = metrics.GetOrCreateCounter(`accountsdb_cleaned_entries_total`)
	mxRecycledSegments = metrics.GetOrCreateCounter(`accountsdb_recycled_segments_total`)

	mxLoadTook      = metrics.GetOrCreateSummary(`accountsdb_load_seconds`)
	mxFlushTook     = metrics.GetOrCreateSummary(`accountsdb_flush_seconds`)
	mxFullHashTook  = metrics.GetOrCreateSummary(`accountsdb_full_hash_seconds`)
	mxCleanTook     = metrics.GetOrCreateSummary(`accountsdb_clean_seconds`)
	mxShrinkTook    = metrics.GetOrCreateSummary(`accountsdb_shrink_seconds`)
	mxReplayTook    = metrics.GetOrCreateSummary(`accountsdb_replay_seconds`)
	mxScanTook      = metrics.GetOrCreateSummary(`accountsdb_scan_seconds`)
	mxLargestTook   = metrics.GetOrCreateSummary(`accountsdb_largest_accounts_seconds`)
	mxDeltaHashTook = metrics.GetOrCreateSummary(`accountsdb_delta_hash_seconds`)
)
