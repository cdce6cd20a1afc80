package txjournal

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/txjournal/internal/segment"
)

// recover replays the log into the index. Segments are decoded in parallel
// and applied in order. The first corrupt record ends the replay: the log is
// cut there and everything after it is quarantined.
func (j *Journal[V]) recover(ctx context.Context, concurrency int) error {
	j.state.Store(int32(StateScanning))
	start := time.Now()

	scans, err := j.log.ScanAll(ctx, concurrency)
	if err != nil {
		return &IOFailure{Op: "scan", Path: j.dir, cause: err}
	}

	stats := RecoveryStats{Segments: len(scans)}
	var corrupt *CorruptRecordError

replay:
	for _, scan := range scans {
		for _, p := range scan.Records {
			e, err := j.decode(p.Record)
			if err != nil {
				corrupt = &CorruptRecordError{Segment: p.Pos.Segment, Offset: p.Pos.Offset, cause: err}
				break replay
			}
			stats.Records++
			j.apply(p.Pos, e, &stats)
		}
		if scan.Cause != nil {
			corrupt = &CorruptRecordError{Segment: scan.Seq, Offset: scan.End, cause: scan.Cause}
			break
		}
	}

	if corrupt != nil {
		quarantined, err := j.log.Repair(segment.Position{Segment: corrupt.Segment, Offset: corrupt.Offset})
		if err != nil {
			return &IOFailure{Op: "repair", Path: j.dir, cause: fmt.Errorf("%w: %w", corrupt, err)}
		}
		stats.Truncated = true
		stats.TruncatedAt = segment.Position{Segment: corrupt.Segment, Offset: corrupt.Offset}.String()
		stats.TruncateReason = corrupt.Unwrap().Error()
		stats.Quarantined = quarantined
		j.logger.LogRecoveryTruncated(ctx, corrupt.Segment, corrupt.Offset, quarantined, corrupt)
	}

	stats.Released = j.reclaim(ctx)

	stats.Entries = j.idx.Len()
	stats.Transactions = j.idx.Transactions()
	stats.Duration = time.Since(start)
	j.recovery = stats

	j.state.Store(int32(StateReady))
	j.metrics.RecordRecovery(stats)
	j.logger.LogOpened(ctx, stats)
	j.warnPinned(ctx)
	return nil
}

func (j *Journal[V]) apply(pos segment.Position, e Entry[V], stats *RecoveryStats) {
	if j.skip(e) {
		stats.Skipped++
		return
	}
	if j.complete(e) {
		j.idx.Complete(e.TxID)
		stats.Completed++
		return
	}
	j.idx.Add(e.TxID, pos, e)
}
