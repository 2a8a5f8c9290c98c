package main

import (
	"fmt"

	"github.com/petems/micwav/internal/route"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List input devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		devices, err := e.device.ListDevices()
		if err != nil {
			return err
		}

		router := route.NewDeviceRouter(e.device, e.cfg.Audio.PreferredRoute, e.log)
		wireless := ""
		if router.Activate() == nil {
			wireless = router.SelectedDevice()
			defer router.Deactivate()
		}

		out := cmd.OutOrStdout()
		for _, d := range devices {
			marker := " "
			if d.Default {
				marker = "*"
			}
			suffix := ""
			if d.ID == wireless {
				suffix = "  (wireless route)"
			}
			fmt.Fprintf(out, "%s %s%s\n", marker, d.Name, suffix)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
