package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seglog/seglog/pkg/seglog"
)

var (
	scanSegment uint64
	scanOffset  int64
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:          "scan",
	Short:        "Prints all records of the log in order.",
	Long:         `Prints all records of the log in order, optionally starting from a given position.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := seglog.OpenDirectory(cmd.Context(), directory)
		if err != nil {
			return err
		}
		defer func() {
			if err := log.Close(cmd.Context()); err != nil {
				fmt.Println(err)
			}
		}()

		from := seglog.Position{Segment: scanSegment, Offset: scanOffset}
		reader, err := log.Scan(cmd.Context(), from)
		if err != nil {
			return err
		}
		for reader.Next() {
			record := reader.Value()
			fmt.Printf("%s: %q\n", record.Position, record.Data)
		}
		if err := reader.Err(); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Uint64Var(
		&scanSegment,
		"segment",
		0,
		"The sequence number of the segment to start scanning at.",
	)

	scanCmd.Flags().Int64Var(
		&scanOffset,
		"offset",
		0,
		"The byte offset within the segment to start scanning at. Must be a frame boundary.",
	)
}
