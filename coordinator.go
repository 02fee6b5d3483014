package sajmqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rwirdemann/sajmqtt/registers"
)

// MeasurementPort receives decoded measurements and availability changes.
// The mqtt handler implements it for the bridge daemon.
type MeasurementPort interface {
	PublishMeasurement(ctx context.Context, m registers.Measurement) error
	PublishAvailability(online bool)
}

// Coordinator periodically fetches the documented register blocks and feeds
// the decoded measurements to a sink. The static info blocks are fetched once
// and cached; realtime data is refreshed every interval.
type Coordinator struct {
	client   *Client
	sink     MeasurementPort
	interval time.Duration

	mu             sync.Mutex
	inverterInfo   []byte
	batteryInfo    []byte
	controllerData []byte
	lastRefresh    time.Time
	lastErr        error
	available      bool
}

func NewCoordinator(client *Client, sink MeasurementPort, interval time.Duration) *Coordinator {
	return &Coordinator{client: client, sink: sink, interval: interval}
}

// Run refreshes once immediately and then on every tick until ctx is done.
// Refresh failures are logged and retried on the next tick; they do not stop
// the loop.
func (c *Coordinator) Run(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		slog.Warn("initial refresh failed", "error", err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				slog.Warn("refresh failed", "error", err)
			}
		}
	}
}

// Refresh performs one full fetch cycle and publishes the results.
func (c *Coordinator) Refresh(ctx context.Context) (err error) {
	defer func() {
		c.mu.Lock()
		c.lastRefresh = time.Now()
		c.lastErr = err
		c.mu.Unlock()
		c.setAvailable(err == nil)
	}()

	if err := c.fetchInfoBlocks(ctx); err != nil {
		return err
	}

	slog.Debug("fetching block", "name", registers.BlockBatteryController.Name)
	controllerData, err := c.client.ReadRegisters(ctx, registers.BlockBatteryController.Start, registers.BlockBatteryController.Count)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", registers.BlockBatteryController.Name, err)
	}
	c.mu.Lock()
	c.controllerData = controllerData
	c.mu.Unlock()

	slog.Debug("fetching block", "name", registers.BlockRealtime.Name)
	data, err := c.client.ReadRegisters(ctx, registers.BlockRealtime.Start, registers.BlockRealtime.Count)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", registers.BlockRealtime.Name, err)
	}

	measurements, err := registers.DecodeRealtime(data)
	if err != nil {
		return err
	}
	stats, err := registers.DecodeEnergyStats(data)
	if err != nil {
		return err
	}

	for _, m := range append(measurements, stats...) {
		if err := c.sink.PublishMeasurement(ctx, m); err != nil {
			return fmt.Errorf("publish %s: %w", m.Name, err)
		}
	}
	slog.Info("refresh complete", "measurements", len(measurements)+len(stats))
	return nil
}

// fetchInfoBlocks loads the static inverter and battery info blocks the
// first time they are needed.
func (c *Coordinator) fetchInfoBlocks(ctx context.Context) error {
	c.mu.Lock()
	haveInverter := c.inverterInfo != nil
	haveBattery := c.batteryInfo != nil
	c.mu.Unlock()

	if !haveInverter {
		slog.Debug("fetching block", "name", registers.BlockInverterInfo.Name)
		data, err := c.client.ReadRegisters(ctx, registers.BlockInverterInfo.Start, registers.BlockInverterInfo.Count)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", registers.BlockInverterInfo.Name, err)
		}
		c.mu.Lock()
		c.inverterInfo = data
		c.mu.Unlock()
	}

	if !haveBattery {
		slog.Debug("fetching block", "name", registers.BlockBatteryInfo.Name)
		data, err := c.client.ReadRegisters(ctx, registers.BlockBatteryInfo.Start, registers.BlockBatteryInfo.Count)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", registers.BlockBatteryInfo.Name, err)
		}
		c.mu.Lock()
		c.batteryInfo = data
		c.mu.Unlock()
	}
	return nil
}

func (c *Coordinator) setAvailable(ok bool) {
	c.mu.Lock()
	changed := c.available != ok
	c.available = ok
	c.mu.Unlock()
	if changed {
		if ok {
			slog.Info("inverter is answering again")
		} else {
			slog.Warn("inverter stopped answering")
		}
		c.sink.PublishAvailability(ok)
	}
}

// InverterInfo returns the cached inverter info block, nil before the first
// successful fetch.
func (c *Coordinator) InverterInfo() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverterInfo
}

// BatteryInfo returns the cached battery info block.
func (c *Coordinator) BatteryInfo() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batteryInfo
}

// BatteryControllerData returns the battery controller block from the most
// recent refresh.
func (c *Coordinator) BatteryControllerData() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controllerData
}

// Status summarizes the coordinator state for the console.
func (c *Coordinator) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := "unavailable"
	if c.available {
		state = "available"
	}
	s := fmt.Sprintf("Inverter: %s", state)
	if !c.lastRefresh.IsZero() {
		s += fmt.Sprintf("\n  Last refresh: %s", c.lastRefresh.Format(time.DateTime))
	}
	if c.lastErr != nil {
		s += fmt.Sprintf("\n  Last error: %v", c.lastErr)
	}
	s += fmt.Sprintf("\n  Pending requests: %d", c.client.Registry().Len())
	return s
}
