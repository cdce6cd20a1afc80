package cli

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hupe1980/txjournal/internal/fs"
)

// SegmentStats describes one segment file.
type SegmentStats struct {
	Segment      uint64 `json:"segment"`
	Size         int64  `json:"size"`
	Records      int    `json:"records"`
	Transactions int    `json:"transactions"`
	Corrupt      bool   `json:"corrupt"`
}

// StatsResult is the output of the stats command.
type StatsResult struct {
	JournalID    string         `json:"journal_id"`
	Segments     []SegmentStats `json:"segments"`
	TotalSize    int64          `json:"total_size"`
	Records      int            `json:"records"`
	Transactions int            `json:"transactions"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-segment sizes and record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, cmd)
		},
	}
}

func runStats(opts *RootOptions, cmd *cobra.Command) error {
	out := formatter(opts, cmd)

	res, err := scanDir(cmd.Context(), fs.Default, opts.Dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := StatsResult{JournalID: res.JournalID, Segments: []SegmentStats{}}
	allTxs := make(map[int64]struct{})
	for i, scan := range res.Scans {
		txs := make(map[int64]struct{})
		for _, p := range scan.Records {
			txs[p.Record.TxID] = struct{}{}
			allTxs[p.Record.TxID] = struct{}{}
		}
		result.Segments = append(result.Segments, SegmentStats{
			Segment:      scan.Seq,
			Size:         res.Sizes[i],
			Records:      len(scan.Records),
			Transactions: len(txs),
			Corrupt:      scan.Cause != nil,
		})
		result.TotalSize += res.Sizes[i]
		result.Records += len(scan.Records)
	}
	result.Transactions = len(allTxs)
	out.VerboseLog("scanned %d segment(s) in %s", len(result.Segments), opts.Dir)

	if out.JSON() {
		return out.Encode("ok", result, "")
	}

	table := tablewriter.NewWriter(out.Writer)
	table.Header("Segment", "Size", "Records", "Transactions", "Status")
	for _, s := range result.Segments {
		status := "ok"
		if s.Corrupt {
			status = "corrupt"
		}
		if err := table.Append([]string{
			strconv.FormatUint(s.Segment, 10),
			humanize.IBytes(uint64(s.Size)), //nolint:gosec // sizes are never negative
			strconv.Itoa(s.Records),
			strconv.Itoa(s.Transactions),
			status,
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(out.Writer, "journal %s: %d segment(s), %s, %d record(s), %d transaction(s)\n",
		result.JournalID, len(result.Segments), humanize.IBytes(uint64(result.TotalSize)), //nolint:gosec
		result.Records, result.Transactions)
	return nil
}
