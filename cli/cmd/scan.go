package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/mortdb/mort/basefile"
	"github.com/mortdb/mort/cli/util"
	"github.com/mortdb/mort/fsview"
	"github.com/mortdb/mort/reconcile"
	"github.com/mortdb/mort/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	scanPath       string
	scanGroup      string
	scanUnmerged   bool
	scanFilter     string
	scanMaxMemory  int64
	scanLazy       bool
	scanBufferSize int
)

func runScan(ctx context.Context) error {
	store := storage.NewDirectoryStore(scanPath)
	view := fsview.NewStoreView(store)
	slice, err := view.FileSlice(ctx, scanGroup)
	if err != nil {
		return fmt.Errorf("failed to resolve file slice: %w", err)
	}

	var base reconcile.Source
	if slice.BaseFile != "" {
		base, err = basefile.NewReader(ctx, store, slice.BaseFile)
		if err != nil {
			return fmt.Errorf("failed to open base file: %w", err)
		}
	}

	filter, err := util.NewRecordFilter(scanFilter)
	if err != nil {
		return err
	}

	mode := reconcile.ModeMerged
	if scanUnmerged {
		mode = reconcile.ModeUnmerged
	}
	r, err := reconcile.New(ctx, store, slice, base,
		reconcile.WithMode(mode),
		reconcile.WithMaxMemory(viper.GetInt64("max_memory_bytes")),
		reconcile.WithLazyBlockRead(viper.GetBool("lazy_block_read")),
		reconcile.WithBufferSize(viper.GetInt("stream_buffer_size")),
	)
	if err != nil {
		return fmt.Errorf("failed to start reconciliation: %w", err)
	}
	defer r.Close()

	headers := []string{"Partition", "Key", "Ordering", "Deleted", "Fields"}
	rows := [][]string{}
	for {
		rec, err := r.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("scan failed: %w", err)
		}
		if !filter.Eval(rec) {
			continue
		}
		fields, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
		rows = append(rows, []string{
			rec.Key.Partition,
			rec.Key.Record,
			fmt.Sprintf("%d", rec.Ordering),
			fmt.Sprintf("%t", rec.Deleted),
			string(fields),
		})
	}
	util.PrintTable(os.Stdout, headers, rows)
	fmt.Printf("%d records (%s mode)\n", len(rows), mode)
	return nil
}

var scanCmd = &cobra.Command{
	Use:   "scan --path [dir] --group [id]",
	Short: "reconcile and print the records of a file group",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if scanPath == "" || scanGroup == "" {
			bailf("must specify --path and --group")
		}
		checkErr(runScan(ctx))
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanPath, "path", "", "", "table directory")
	scanCmd.Flags().StringVarP(&scanGroup, "group", "", "", "file group id")
	scanCmd.Flags().BoolVarP(&scanUnmerged, "unmerged", "", false, "stream every surviving log record without merging")
	scanCmd.Flags().StringVarP(&scanFilter, "filter", "", "", "CEL expression filtering output records")
	scanCmd.Flags().Int64VarP(&scanMaxMemory, "max-memory", "", 1<<30, "queue memory budget in bytes")
	scanCmd.Flags().BoolVarP(&scanLazy, "lazy", "", false, "defer log block payload reads until materialization")
	scanCmd.Flags().IntVarP(&scanBufferSize, "buffer-size", "", 1<<20, "log stream buffer size in bytes")

	checkErr(viper.BindPFlag("max_memory_bytes", scanCmd.Flags().Lookup("max-memory")))
	checkErr(viper.BindPFlag("lazy_block_read", scanCmd.Flags().Lookup("lazy")))
	checkErr(viper.BindPFlag("stream_buffer_size", scanCmd.Flags().Lookup("buffer-size")))
}
