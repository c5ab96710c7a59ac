package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seglog/seglog/pkg/seglog"
)

// describeCmd represents the describe command.
var describeCmd = &cobra.Command{
	Use:          "describe",
	Short:        "Provides detailed information about the log.",
	Long:         `Provides detailed information about the log. Opening the log runs recovery, so a damaged tail is reported and discarded.`,
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

		for _, segment := range log.Segments() {
			state := "active"
			if segment.Sealed {
				state = "sealed"
			}
			fmt.Printf("Segment: %020d\n", segment.Seq)
			fmt.Printf("  Size:  %d bytes\n", segment.Size)
			fmt.Printf("  State: %s\n", state)
		}
		fmt.Printf("Next append position: %s\n", log.NextPosition())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
