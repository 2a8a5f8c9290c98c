package main

import (
	"fmt"
	"math"
	"time"

	"github.com/petems/micwav/internal/wav"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Show the format and level of a WAV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := wav.Probe(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "File:        %s (%d bytes)\n", info.Path, info.FileSize)
		fmt.Fprintf(out, "Format:      %d Hz, %d ch, %d bit (code %d)\n",
			info.SampleRate, info.Channels, info.BitsPerSample, info.AudioFormat)
		fmt.Fprintf(out, "Payload:     %d bytes\n", info.DataSize)
		fmt.Fprintf(out, "Duration:    %s\n", info.Duration.Round(time.Millisecond))
		if math.IsInf(info.PeakDBFS, -1) {
			fmt.Fprintln(out, "Peak:        silence")
		} else {
			fmt.Fprintf(out, "Peak:        %.1f dBFS\n", info.PeakDBFS)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
