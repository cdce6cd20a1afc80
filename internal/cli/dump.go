package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/txjournal"
	"github.com/hupe1980/txjournal/internal/fs"
)

// DumpRecord is one record as printed by dump.
type DumpRecord struct {
	Segment  uint64 `json:"segment"`
	Offset   int64  `json:"offset"`
	TxID     int64  `json:"tx"`
	Op       string `json:"op"`
	Queue    string `json:"queue"`
	Size     int    `json:"size"`
	ValueLen int    `json:"value_len"`
	Value    string `json:"value"`
}

type dumpOptions struct {
	tx int64
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &dumpOptions{}
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print records in append order",
		Long: `Print the records of a journal in append order.

Values are shown as a printable preview of their encoded bytes. Output stops
at the first corrupt record, where recovery would truncate the log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().Int64Var(&opts.tx, "tx", 0, "only show records of this transaction")
	return cmd
}

func runDump(rootOpts *RootOptions, opts *dumpOptions, cmd *cobra.Command) error {
	out := formatter(rootOpts, cmd)
	filter := cmd.Flags().Changed("tx")

	res, err := scanDir(cmd.Context(), fs.Default, rootOpts.Dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	records := []DumpRecord{}
	stop := res.firstCorruption()
	for i, scan := range res.Scans {
		if stop >= 0 && i > stop {
			break
		}
		for _, p := range scan.Records {
			if filter && p.Record.TxID != opts.tx {
				continue
			}
			records = append(records, DumpRecord{
				Segment:  p.Pos.Segment,
				Offset:   p.Pos.Offset,
				TxID:     p.Record.TxID,
				Op:       txjournal.Operation(p.Record.Op).String(),
				Queue:    string(p.Record.Queue),
				Size:     p.Record.Size(),
				ValueLen: len(p.Record.Value),
				Value:    preview(p.Record.Value),
			})
		}
	}
	if stop >= 0 {
		s := res.Scans[stop]
		out.VerboseLog("stopped at corrupt record in segment %d at offset %d: %v", s.Seq, s.End, s.Cause)
	}

	if out.JSON() {
		return out.Encode("ok", records, "")
	}
	for _, r := range records {
		fmt.Fprintf(out.Writer, "%d@%d\ttx=%d\top=%s\tqueue=%q\tvalue=%q (%d bytes)\n",
			r.Segment, r.Offset, r.TxID, r.Op, r.Queue, r.Value, r.ValueLen)
	}
	return nil
}
