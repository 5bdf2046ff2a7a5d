package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mortdb/mort/dlog"
	"github.com/mortdb/mort/record"
	"github.com/mortdb/mort/schema"
	"github.com/mortdb/mort/util/log"
)

/*
The scanners consume a file group's block chain in commit order and
reconstruct per-key record state. Both variants share a two-phase structure:

Phase one walks the chain, retaining data and delete blocks and applying
command blocks as it goes. A rollback command for instant T removes every
pending block attributed to T, exactly, before any of its records are ever
materialized - this is what makes lazy block reads profitable, since a
rolled-back block's payload is never fetched. Blocks attributed to instants
beyond the latest visible instant are ignored.

Phase two processes the surviving blocks in order: the merged variant
resolves them into a key-to-record table, the unmerged variant streams every
record to a callback.
*/

////////////////////////////////////////////////////////////////////////////////

type walker struct {
	chain         *dlog.ChainReader
	latestInstant string
}

// walk traverses the chain and returns the surviving data and delete blocks
// in commit order.
func (w *walker) walk(ctx context.Context) ([]*dlog.Block, error) {
	pending := []*dlog.Block{}
	for {
		block, err := w.chain.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return pending, nil
			}
			return nil, fmt.Errorf("failed to read block chain: %w", err)
		}
		if w.latestInstant != "" && block.Instant > w.latestInstant {
			log.Debugf(ctx, "Skipping block at instant %s beyond latest visible instant %s", block.Instant, w.latestInstant)
			continue
		}
		switch block.Kind {
		case dlog.KindData, dlog.KindDelete:
			pending = append(pending, block)
		case dlog.KindCommand:
			payload, err := block.Payload(ctx)
			if err != nil {
				if errors.Is(err, dlog.TruncatedBlockError{}) {
					log.Warnf(ctx, "Dropping truncated command block in %s at offset %d", block.File, block.Offset)
					continue
				}
				return nil, fmt.Errorf("failed to materialize command block: %w", err)
			}
			cmd, err := dlog.DecodeCommandPayload(payload)
			if err != nil {
				return nil, fmt.Errorf("failed to decode command block: %w", err)
			}
			pending = retract(pending, cmd.Target)
			log.Infof(ctx, "Applied rollback of instant %s", cmd.Target)
		default:
			return nil, fmt.Errorf("unexpected block kind %d", block.Kind)
		}
	}
}

// retract drops pending blocks attributed to the target instant.
func retract(pending []*dlog.Block, target string) []*dlog.Block {
	kept := pending[:0]
	for _, block := range pending {
		if block.Instant != target {
			kept = append(kept, block)
		}
	}
	return kept
}

// decodeData materializes a data block and returns its records validated
// against the writer schema and projected into the reader schema.
func decodeData(ctx context.Context, block *dlog.Block, conf *config) ([]record.Record, error) {
	payload, err := block.Payload(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize data block: %w", err)
	}
	records, err := dlog.DecodeDataPayload(payload)
	if err != nil {
		return nil, dlog.CorruptBlockError{File: block.File, Offset: block.Offset, Reason: err.Error()}
	}
	if conf.writerSchema == nil && conf.readerSchema == nil {
		return records, nil
	}
	out := make([]record.Record, 0, len(records))
	for _, rec := range records {
		if conf.writerSchema != nil {
			if err := conf.writerSchema.Validate(rec); err != nil {
				return nil, fmt.Errorf("record %s: %w", rec.Key, err)
			}
		}
		if conf.readerSchema != nil {
			rec, err = schema.Project(conf.readerSchema, rec)
			if err != nil {
				return nil, fmt.Errorf("record %s: %w", rec.Key, err)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// decodeDelete materializes a delete block and returns its tombstoned keys.
func decodeDelete(ctx context.Context, block *dlog.Block) ([]record.Key, error) {
	payload, err := block.Payload(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize delete block: %w", err)
	}
	keys, err := dlog.DecodeDeletePayload(payload)
	if err != nil {
		return nil, dlog.CorruptBlockError{File: block.File, Offset: block.Offset, Reason: err.Error()}
	}
	return keys, nil
}
