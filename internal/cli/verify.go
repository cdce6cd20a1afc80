package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/txjournal"
	"github.com/hupe1980/txjournal/codec"
	"github.com/hupe1980/txjournal/internal/fs"
)

// Corruption locates the first bad record.
type Corruption struct {
	Segment uint64 `json:"segment"`
	Offset  int64  `json:"offset"`
	Cause   string `json:"cause"`
}

// VerifyResult is the output of the verify command.
type VerifyResult struct {
	Segments   int         `json:"segments"`
	Records    int         `json:"records"`
	Corruption *Corruption `json:"corruption,omitempty"`
}

type verifyOptions struct {
	Codec string
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &verifyOptions{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every record and report the first corruption",
		Long: `Decode and checksum every record.

Without --codec only the framing, checksums and operation codes are
checked. Opening the journal also decodes every value, so a value its codec
cannot read is corruption too; pass the codec the journal is written with
(raw, json, gob, zstd+json, lz4+gob, ...) to check values as well.

Exits with status 1 when a corrupt record is found. The journal is not
modified; the next Open truncates it at the reported position.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Codec, "codec", "", "also decode values with this codec")
	return cmd
}

// valueTarget returns something c can decode any value into. Gob discards
// into nil; JSON and raw need a buffer.
func valueTarget(c codec.Codec) any {
	name := c.Name()
	if i := strings.LastIndexByte(name, '+'); i >= 0 {
		name = name[i+1:]
	}
	switch name {
	case "json":
		return new(json.RawMessage)
	case "raw":
		return new([]byte)
	default:
		return nil
	}
}

func runVerify(opts *RootOptions, vopts *verifyOptions, cmd *cobra.Command) error {
	out := formatter(opts, cmd)

	var values codec.Codec
	if vopts.Codec != "" {
		c, ok := codec.ByName(vopts.Codec)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown codec %q", vopts.Codec))
		}
		values = c
	}

	res, err := scanDir(cmd.Context(), fs.Default, opts.Dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := VerifyResult{Segments: len(res.Scans)}
scan:
	for _, s := range res.Scans {
		for _, p := range s.Records {
			if op := txjournal.Operation(p.Record.Op); !op.Valid() {
				result.Corruption = &Corruption{Segment: p.Pos.Segment, Offset: p.Pos.Offset, Cause: "invalid operation " + op.String()}
				break scan
			}
			if values != nil && !txjournal.Operation(p.Record.Op).Marker() {
				if err := values.Unmarshal(p.Record.Value, valueTarget(values)); err != nil {
					result.Corruption = &Corruption{Segment: p.Pos.Segment, Offset: p.Pos.Offset, Cause: "decode value: " + err.Error()}
					break scan
				}
			}
			result.Records++
		}
		if s.Cause != nil {
			result.Corruption = &Corruption{Segment: s.Seq, Offset: s.End, Cause: s.Cause.Error()}
			break
		}
	}

	if out.JSON() {
		status := "ok"
		if result.Corruption != nil {
			status = "error"
		}
		if err := out.Encode(status, result, ""); err != nil {
			return err
		}
	} else if c := result.Corruption; c != nil {
		fmt.Fprintf(out.Writer, "corrupt: segment %d at offset %d: %s (%d good record(s) before it)\n",
			c.Segment, c.Offset, c.Cause, result.Records)
	} else {
		fmt.Fprintf(out.Writer, "ok: %d record(s) in %d segment(s)\n", result.Records, result.Segments)
	}

	if result.Corruption != nil {
		return NewExitError(ExitFailure, "journal is corrupt")
	}
	return nil
}
