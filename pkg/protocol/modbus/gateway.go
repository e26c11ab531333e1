package modbus

import (
	"context"
	"sync"
	"time"

	"edabridge/pkg/protocol/modbus/runtime"
	"k8s.io/klog/v2"
)

// Gateway is the only path to the bus. Every transaction holds the lock for its full duration,
// so transactions from concurrent callers never interleave. Logical operations spanning several
// transactions are not atomic.
type Gateway struct {
	mu        sync.Mutex
	transport runtime.Transport
	opened    bool
}

func NewGateway(transport runtime.Transport) *Gateway {
	registerMetrics()
	return &Gateway{transport: transport}
}

func (g *Gateway) Open(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.opened {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.transport.Open(); err != nil {
		return err
	}
	g.opened = true
	return nil
}

func (g *Gateway) Close(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.opened {
		return nil
	}
	g.opened = false
	return g.transport.Close()
}

func (g *Gateway) ReadCoils(ctx context.Context, address, quantity uint16) ([]bool, error) {
	var values []bool
	err := g.transact(ctx, runtime.OperationReadCoils, address, quantity, nil, func() (err error) {
		values, err = g.transport.ReadCoils(address, quantity)
		if err == nil && len(values) < int(quantity) {
			err = runtime.ErrShortResponse
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (g *Gateway) WriteCoil(ctx context.Context, address uint16, value bool) error {
	return g.transact(ctx, runtime.OperationWriteCoil, address, 1, value, func() error {
		return g.transport.WriteCoil(address, value)
	})
}

func (g *Gateway) ReadHoldingRegisters(ctx context.Context, address, quantity uint16) ([]uint16, error) {
	var values []uint16
	err := g.transact(ctx, runtime.OperationReadHoldingRegisters, address, quantity, nil, func() (err error) {
		values, err = g.transport.ReadHoldingRegisters(address, quantity)
		if err == nil && len(values) < int(quantity) {
			err = runtime.ErrShortResponse
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (g *Gateway) WriteRegister(ctx context.Context, address, value uint16) error {
	return g.transact(ctx, runtime.OperationWriteRegister, address, 1, value, func() error {
		return g.transport.WriteRegister(address, value)
	})
}

// transact runs fn under the bus lock. Failures are logged with the attempted address and
// returned unmodified; there is no retry.
func (g *Gateway) transact(ctx context.Context, operation string, address, quantity uint16, value interface{}, fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if value != nil {
		klog.V(4).InfoS("Modbus transaction", "operation", operation, "address", address, "value", value)
	} else {
		klog.V(4).InfoS("Modbus transaction", "operation", operation, "address", address, "length", quantity)
	}

	start := time.Now()
	err := fn()
	observeTransaction(operation, start, err)
	if err != nil {
		if value != nil {
			klog.ErrorS(err, "Failed modbus transaction", "operation", operation, "address", address, "value", value)
		} else {
			klog.ErrorS(err, "Failed modbus transaction", "operation", operation, "address", address, "length", quantity)
		}
		return err
	}
	return nil
}
