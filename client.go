package sajmqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultMaxRegistersPerQuery uint16 = 0x64
	DefaultTimeout                     = 10 * time.Second
)

// ClientConfig bounds a Client. Zero values fall back to the defaults above.
type ClientConfig struct {
	// UnitAddress is the modbus device address of the inverter.
	UnitAddress uint8

	// MaxRegistersPerQuery is the soft cap a logical read is chunked by. It
	// must not exceed MaxRegistersPerFrame; exceeding it is a configuration
	// error caught here, not at call time.
	MaxRegistersPerQuery uint16

	// Timeout covers one full publish and await cycle per call.
	Timeout time.Duration
}

// Client is the operation surface of the protocol: it turns logical register
// reads and writes into framed requests, hands them to the transport and
// assembles the asynchronous responses into one typed result.
type Client struct {
	codec     *Codec
	transport TransportPort
	registry  *Registry

	unitAddr      uint8
	maxPerRequest uint16
	timeout       time.Duration
}

func NewClient(transport TransportPort, cfg ClientConfig) (*Client, error) {
	if cfg.UnitAddress == 0 {
		cfg.UnitAddress = DefaultDeviceAddress
	}
	if cfg.MaxRegistersPerQuery == 0 {
		cfg.MaxRegistersPerQuery = DefaultMaxRegistersPerQuery
	}
	if cfg.MaxRegistersPerQuery > MaxRegistersPerFrame {
		return nil, fmt.Errorf("%w: max registers per query %d exceeds protocol cap %d",
			ErrInvalidArgument, cfg.MaxRegistersPerQuery, MaxRegistersPerFrame)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		codec:         NewCodec(),
		transport:     transport,
		registry:      NewRegistry(),
		unitAddr:      cfg.UnitAddress,
		maxPerRequest: cfg.MaxRegistersPerQuery,
		timeout:       cfg.Timeout,
	}, nil
}

// Codec exposes the client's codec so its firmware-variant fields can be
// adjusted before first use.
func (c *Client) Codec() *Codec { return c.codec }

// Registry exposes the pending-request registry, mainly for tests asserting
// that calls never leak slots.
func (c *Client) Registry() *Registry { return c.registry }

// ReadRegisters reads count registers starting at start and returns their raw
// big-endian content as one contiguous buffer. Reads larger than the
// configured per-query cap are split into several frames whose responses are
// concatenated in address order, regardless of arrival order. The result is
// all or nothing: a missing or invalid sub-response means an error, never a
// truncated buffer.
func (c *Client) ReadRegisters(ctx context.Context, start, count uint16) ([]byte, error) {
	if count == 0 {
		return nil, fmt.Errorf("%w: register count must be > 0", ErrInvalidArgument)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chunks := Plan(start, count, c.maxPerRequest)
	frames := make([][]byte, 0, len(chunks))
	ids := make([]uint16, 0, len(chunks))
	defer func() { c.registry.Remove(ids...) }()

	for _, chunk := range chunks {
		frame, id, err := c.codec.EncodeRead(c.unitAddr, chunk.Start, chunk.Count)
		if err != nil {
			return nil, err
		}
		if err := c.registry.Register(id, KindRead); err != nil {
			slog.Error("correlation id collision", "id", fmt.Sprintf("0x%04X", id))
			return nil, err
		}
		frames = append(frames, frame)
		ids = append(ids, id)
	}

	for i, frame := range frames {
		slog.Debug("publishing read request",
			"id", fmt.Sprintf("0x%04X", ids[i]),
			"start", fmt.Sprintf("0x%04X", chunks[i].Start),
			"count", chunks[i].Count)
		if err := c.transport.Publish(ctx, frame); err != nil {
			return nil, fmt.Errorf("publish read request: %w", err)
		}
	}

	if err := c.registry.AwaitAll(ctx, ids); err != nil {
		return nil, timeoutOr(err)
	}

	var data []byte
	for _, id := range ids {
		res, ok := c.registry.Result(id)
		if !ok {
			return nil, fmt.Errorf("sajmqtt: result for id 0x%04X vanished", id)
		}
		data = append(data, res.Data...)
	}
	return data, nil
}

// WriteRegister writes value to a single register and returns the value the
// inverter echoed back, which may legitimately be zero.
func (c *Client) WriteRegister(ctx context.Context, register, value uint16) (uint16, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	frame, id := c.codec.EncodeWrite(c.unitAddr, register, value)
	if err := c.registry.Register(id, KindWrite); err != nil {
		slog.Error("correlation id collision", "id", fmt.Sprintf("0x%04X", id))
		return 0, err
	}
	defer c.registry.Remove(id)

	slog.Debug("publishing write request",
		"id", fmt.Sprintf("0x%04X", id),
		"register", fmt.Sprintf("0x%04X", register),
		"value", fmt.Sprintf("0x%04X", value))
	if err := c.transport.Publish(ctx, frame); err != nil {
		return 0, fmt.Errorf("publish write request: %w", err)
	}

	if err := c.registry.AwaitAll(ctx, []uint16{id}); err != nil {
		return 0, timeoutOr(err)
	}

	res, ok := c.registry.Result(id)
	if !ok {
		return 0, fmt.Errorf("sajmqtt: result for id 0x%04X vanished", id)
	}
	return res.Value, nil
}

// HandleInbound is the transport's delivery callback for frames arriving on
// the response topic. Malformed frames are logged and dropped so that a
// corrupt message can never break the dispatch loop; responses nobody waits
// for anymore are dropped silently.
func (c *Client) HandleInbound(raw []byte) {
	rsp, err := c.codec.DecodeResponse(raw)
	if err != nil {
		slog.Warn("dropping malformed response frame", "error", err, "len", len(raw))
		return
	}

	res := Result{Kind: rsp.Kind, Data: rsp.Data, Value: rsp.Value}
	if !c.registry.Fulfill(rsp.CorrelationID, res) {
		slog.Debug("dropping unmatched response", "id", fmt.Sprintf("0x%04X", rsp.CorrelationID), "kind", rsp.Kind)
		return
	}
	slog.Debug("response fulfilled", "id", fmt.Sprintf("0x%04X", rsp.CorrelationID), "kind", rsp.Kind)
}

// timeoutOr maps a deadline expiry to ErrTimeout and passes every other await
// failure through.
func timeoutOr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
