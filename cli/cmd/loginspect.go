package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mortdb/mort/cli/util"
	"github.com/mortdb/mort/dlog"
	mutil "github.com/mortdb/mort/util"
	"github.com/spf13/cobra"
)

var (
	logInspectFile    string
	logInspectRecords bool
)

func inspectLogFile(ctx context.Context, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	reader, err := dlog.NewReader(f, filename, info.Size(), nil)
	if err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}
	headers := []string{"Offset", "Kind", "Instant", "Size", "Detail"}
	rows := [][]string{}
	truncated := false
	for {
		offset := reader.Offset()
		block, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, dlog.TruncatedBlockError{}) {
				truncated = true
				break
			}
			return fmt.Errorf("failed to read block: %w", err)
		}
		detail := ""
		payload, err := block.Payload(ctx)
		if err != nil {
			return fmt.Errorf("failed to read block payload: %w", err)
		}
		switch block.Kind {
		case dlog.KindData:
			if records, err := dlog.DecodeDataPayload(payload); err == nil {
				detail = fmt.Sprintf("%d records", len(records))
			}
		case dlog.KindDelete:
			if keys, err := dlog.DecodeDeletePayload(payload); err == nil {
				detail = fmt.Sprintf("%d keys", len(keys))
			}
		case dlog.KindCommand:
			if cmd, err := dlog.DecodeCommandPayload(payload); err == nil {
				detail = fmt.Sprintf("rollback %s", cmd.Target)
			}
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", offset),
			block.Kind.String(),
			block.Instant,
			mutil.HumanBytes(block.Length),
			detail,
		})
		if logInspectRecords && block.Kind == dlog.KindData {
			records, err := dlog.DecodeDataPayload(payload)
			if err != nil {
				return fmt.Errorf("failed to decode data block: %w", err)
			}
			for _, rec := range records {
				fmt.Println(rec)
			}
		}
	}
	util.PrintTable(os.Stdout, headers, rows)
	if truncated {
		fmt.Println("note: file ends in a truncated block, ignored by readers")
	}
	return nil
}

var loginspectCmd = &cobra.Command{
	Use:   "loginspect --file [file]",
	Short: "list the blocks of a delta log file",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if logInspectFile == "" {
			bailf("must specify --file")
		}
		checkErr(inspectLogFile(ctx, logInspectFile))
	},
}

func init() {
	rootCmd.AddCommand(loginspectCmd)

	loginspectCmd.Flags().StringVarP(&logInspectFile, "file", "", "", "log file to inspect")
	loginspectCmd.Flags().BoolVarP(&logInspectRecords, "records", "", false, "print the records of each data block")
}
