package fleet

import (
	"fmt"

	"github.com/kilianp07/rcbase/core/model"
)

// VehicleConfig describes one fleet member.
type VehicleConfig struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Config lists the vehicles reachable from this base station. Their order
// defines the index used by SelectVehicle.
type Config struct {
	Vehicles []VehicleConfig `json:"vehicles"`
}

// SetDefaults configures the two cars shipped with the base station when no
// vehicle is listed.
func (c *Config) SetDefaults() {
	if len(c.Vehicles) == 0 {
		c.Vehicles = []VehicleConfig{
			{Name: "car-1", Address: "e0e0e0e0f2"},
			{Name: "car-2", Address: "e0e0e0e0f3"},
		}
	}
	for i := range c.Vehicles {
		if c.Vehicles[i].Name == "" {
			c.Vehicles[i].Name = fmt.Sprintf("car-%d", i+1)
		}
	}
}

// Validate checks every address parses and is unique.
func (c Config) Validate() error {
	_, err := c.Build()
	return err
}

// Build creates the vehicles in configuration order.
func (c Config) Build() ([]*model.Vehicle, error) {
	if len(c.Vehicles) == 0 {
		return nil, fmt.Errorf("fleet: at least one vehicle is required")
	}
	seen := make(map[model.Address]string, len(c.Vehicles))
	out := make([]*model.Vehicle, 0, len(c.Vehicles))
	for _, vc := range c.Vehicles {
		addr, err := model.ParseAddress(vc.Address)
		if err != nil {
			return nil, fmt.Errorf("fleet vehicle %s: %w", vc.Name, err)
		}
		if other, dup := seen[addr]; dup {
			return nil, fmt.Errorf("fleet vehicle %s: address %s already used by %s", vc.Name, addr, other)
		}
		seen[addr] = vc.Name
		out = append(out, model.NewVehicle(vc.Name, addr))
	}
	return out, nil
}
