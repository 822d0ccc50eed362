package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kilianp07/rcbase/config"
	"github.com/kilianp07/rcbase/core/command"
	"github.com/kilianp07/rcbase/core/control"
	"github.com/kilianp07/rcbase/core/fleet"
	coremetrics "github.com/kilianp07/rcbase/core/metrics"
	"github.com/kilianp07/rcbase/core/monitoring"
	"github.com/kilianp07/rcbase/core/pedal"
	coreradio "github.com/kilianp07/rcbase/core/radio"
	coresensor "github.com/kilianp07/rcbase/core/sensor"
	"github.com/kilianp07/rcbase/core/session"
	"github.com/kilianp07/rcbase/infra/logger"
	"github.com/kilianp07/rcbase/infra/metrics"
	"github.com/kilianp07/rcbase/infra/mqtt"
	"github.com/kilianp07/rcbase/infra/radio"
	"github.com/kilianp07/rcbase/infra/sensor"
	"github.com/kilianp07/rcbase/infra/ws"
	"github.com/kilianp07/rcbase/internal/eventbus"
)

// Service wires the radio, the sensor loop and the client transports.
type Service struct {
	cfg    *config.Config
	log    logger.Logger
	Fleet  *fleet.Controller
	Gate   *session.Gate
	Router *command.Router
	Loop   *control.Loop

	radio  coreradio.Radio
	sensor coresensor.Sensor
	bus    *eventbus.TypedBus[control.PedalUpdate]
	mqtt   *mqtt.PahoClient
}

// New builds every component from the configuration. Hardware is opened
// here; Close releases it.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")
	monitoring.Init(monitoring.LogMonitor{Log: logger.New("monitor")})

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	vehicles, err := cfg.Fleet.Build()
	if err != nil {
		return nil, err
	}
	r, err := radio.New(cfg.Radio)
	if err != nil {
		return nil, fmt.Errorf("radio: %w", err)
	}
	s, err := sensor.New(cfg.Sensor)
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("sensor: %w", err)
	}
	svc := &Service{cfg: cfg, log: logg, radio: r, sensor: s, bus: eventbus.NewTyped[control.PedalUpdate]()}

	svc.Fleet, err = fleet.NewController(vehicles, r, logger.New("fleet"), sink)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	svc.Gate = session.NewGate(coremetrics.AsSessionRecorder(sink))
	svc.Router = command.NewRouter(svc.Fleet, svc.Gate, logger.New("router"), coremetrics.AsCommandRecorder(sink))
	svc.Loop = control.NewLoop(s, pedal.NewEstimator(cfg.Pedal), svc.Fleet, svc.bus, cfg.Control,
		logger.New("control"), coremetrics.AsPedalRecorder(sink))

	if cfg.MQTT.Enabled() {
		mcfg := cfg.MQTT
		mcfg.SetStatusWill()
		svc.mqtt, err = mqtt.NewPahoClient(mcfg)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
	}
	logg.Infof("fleet of %d vehicles, radio %s, sensor %s", svc.Fleet.Len(), cfg.Radio.Type, cfg.Sensor.Type)
	return svc, nil
}

// Run serves clients and drives the pedal loop until ctx is canceled or a
// listener fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
		cancel()
	}
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer monitoring.Recover()
			fn()
		}()
	}

	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		spawn(func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				fail(fmt.Errorf("prom server: %w", err))
			}
		})
	}

	server := ws.NewServer(ctx, s.cfg.Session, s.Router, s.Gate)
	wsUpdates := s.bus.Subscribe()
	spawn(func() { server.Relay(ctx, wsUpdates) })
	spawn(func() {
		if err := server.ListenAndServe(ctx); err != nil {
			fail(err)
		}
	})

	if s.mqtt != nil {
		transport := mqtt.NewTransport(s.mqtt, s.cfg.MQTT, s.Router, s.Gate)
		if err := transport.Start(ctx); err != nil {
			fail(fmt.Errorf("mqtt transport: %w", err))
		} else {
			mqttUpdates := s.bus.Subscribe()
			spawn(func() { transport.Relay(ctx, mqttUpdates) })
		}
	}

	spawn(func() {
		if err := s.Loop.Calibrate(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			// commands keep working; the pedal stays released
			s.log.Errorf("sensor calibration: %v", err)
			monitoring.CaptureException(err, map[string]string{"module": "sensor"})
		}
		_ = s.Loop.Run(ctx)
	})

	<-ctx.Done()
	s.bus.Close()
	wg.Wait()
	return firstErr
}

// Close releases the radio, the sensor and the broker connection.
func (s *Service) Close() error {
	var errs []error
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if s.sensor != nil {
		if err := s.sensor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sensor: %w", err))
		}
	}
	if s.radio != nil {
		if err := s.radio.Close(); err != nil {
			errs = append(errs, fmt.Errorf("radio: %w", err))
		}
	}
	monitoring.Flush(0)
	return errors.Join(errs...)
}
