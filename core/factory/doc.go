// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Radios, sensors and metrics sinks are all built this way:
//
//	reg := factory.NewRegistry[radio.Radio]()
//	reg.Register("serial", func(conf map[string]any) (radio.Radio, error) {
//	    var c struct{ Port string `json:"port"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return openSerial(c.Port)
//	})
//	r, err := reg.Create(factory.ModuleConfig{Type: "serial", Conf: map[string]any{"port": "/dev/ttyACM0"}})
package factory
