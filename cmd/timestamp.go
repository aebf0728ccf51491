package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var timestampCmd = &cobra.Command{
	Use:          "timestamp [SECONDS [NANOSECONDS]]",
	Short:        "Print a document timestamp for a Unix time (default now)",
	Args:         cobra.MaximumNArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		utc, err := cmd.Flags().GetBool("utc")
		if err != nil {
			return err
		}
		f := formatter(utc || viper.GetBool("timestamp.utc"))
		if len(args) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), f.FormatTime(time.Now()))
			return nil
		}
		sec, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid seconds %q: %w", args[0], err)
		}
		var nano uint64
		if len(args) == 2 {
			nano, err = strconv.ParseUint(args[1], 0, 32)
			if err != nil {
				return fmt.Errorf("invalid nanoseconds %q: %w", args[1], err)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), f.Format(sec, uint32(nano)))
		return nil
	},
}

func init() {
	timestampCmd.Flags().Bool("utc", false, "render UTC calendar fields")
	rootCmd.AddCommand(timestampCmd)
}
