package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kilianp07/rcbase/config"
	"github.com/kilianp07/rcbase/core/model"
	"github.com/kilianp07/rcbase/infra/mqtt"
)

var vehicleSimCmd = &cobra.Command{
	Use:   "vehicle-sim",
	Short: "Print the packets the mqtt radio publishes for each vehicle",
	RunE:  runVehicleSim,
}

func init() {
	rootCmd.AddCommand(vehicleSimCmd)
}

func runVehicleSim(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.MQTT.Enabled() {
		return fmt.Errorf("vehicle-sim needs mqtt.broker")
	}
	names := make(map[string]string, len(cfg.Fleet.Vehicles))
	vehicles, err := cfg.Fleet.Build()
	if err != nil {
		return err
	}
	for _, v := range vehicles {
		names[v.Address().String()] = v.Name
	}

	simCfg := cfg.MQTT
	simCfg.ClientID = "vehicle-sim-" + uuid.NewString()[:8]
	simCfg.LWTTopic = ""
	cli, err := mqtt.NewPahoClient(simCfg)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer cli.Disconnect()

	out := cmd.OutOrStdout()
	topic := simCfg.Topic("vehicle", "+", "control")
	if err := cli.Subscribe(topic, 0, func(_ paho.Client, msg paho.Message) {
		addr := strings.TrimSuffix(strings.TrimPrefix(msg.Topic(), simCfg.Topic("vehicle")+"/"), "/control")
		p, err := model.DecodePacket(msg.Payload())
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", addr, err)
			return
		}
		name := names[addr]
		if name == "" {
			name = "unknown"
		}
		fmt.Fprintf(out, "%s (%s): %s\n", name, addr, p)
	}); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	fmt.Fprintf(out, "listening on %s\n", topic)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}
