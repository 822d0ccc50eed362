package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rcbase/core/gear"
	"github.com/kilianp07/rcbase/core/model"
)

var (
	packetSteering int
	packetThrottle float64
	packetGear     int
)

var packetCmd = &cobra.Command{
	Use:   "packet",
	Short: "Print the radio packet for a steering, pedal and gear combination",
	RunE:  runPacket,
}

func init() {
	packetCmd.Flags().IntVar(&packetSteering, "steering", 0, "steering value [0,255]")
	packetCmd.Flags().Float64Var(&packetThrottle, "pedal", 0, "pedal value [0,1]")
	packetCmd.Flags().IntVar(&packetGear, "gear", 3, "gear code: 0 neutral, 1 reverse, 2 coast, other drive")
	rootCmd.AddCommand(packetCmd)
}

func runPacket(cmd *cobra.Command, args []string) error {
	if packetSteering < 0 || packetSteering > 255 {
		return fmt.Errorf("steering %d out of [0,255]", packetSteering)
	}
	v := model.NewVehicle("preview", model.Address{})
	v.SetSteering(packetSteering)
	g := model.GearFromCode(packetGear)
	if g.Driving() {
		v.SetThrottle(packetThrottle)
	}
	gear.Apply(v, g)
	p := v.Packet()
	fmt.Fprintf(cmd.OutOrStdout(), "gear=%s %s bytes=% x\n", g, p, p[:])
	return nil
}
