// Package modbustest provides an in-memory register bank standing in for a ventilation unit.
package modbustest

import (
	"sync"

	"edabridge/pkg/protocol/modbus/runtime"
)

var _ runtime.Transport = (*Simulator)(nil)

type Transaction struct {
	Operation string
	Address   uint16
	Quantity  uint16
	Value     interface{}
}

// Simulator implements runtime.Transport on top of coil and holding register maps. Unset
// addresses read as zero. It records every transaction and can be told to fail operations.
type Simulator struct {
	mu           sync.Mutex
	coils        map[uint16]bool
	registers    map[uint16]uint16
	transactions []Transaction
	failures     map[string]error
	opened       bool
	// inFlight detects overlapping transactions.
	inFlight   int
	overlapped bool
	// OnTransaction runs inside each transaction, after it is recorded.
	OnTransaction func(Transaction)
}

func NewSimulator() *Simulator {
	return &Simulator{
		coils:     make(map[uint16]bool),
		registers: make(map[uint16]uint16),
		failures:  make(map[string]error),
	}
}

func (s *Simulator) SetCoils(address uint16, values ...bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range values {
		s.coils[address+uint16(i)] = v
	}
}

func (s *Simulator) SetRegisters(address uint16, values ...uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range values {
		s.registers[address+uint16(i)] = v
	}
}

func (s *Simulator) Coil(address uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coils[address]
}

func (s *Simulator) Register(address uint16) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registers[address]
}

// Fail makes every subsequent call of operation return err until cleared with a nil err.
func (s *Simulator) Fail(operation string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, operation)
		return
	}
	s.failures[operation] = err
}

func (s *Simulator) Transactions() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]Transaction, 0, len(s.transactions)), s.transactions...)
}

func (s *Simulator) ResetTransactions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = nil
}

// Overlapped reports whether two transactions were ever in flight at the same time.
func (s *Simulator) Overlapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlapped
}

func (s *Simulator) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

func (s *Simulator) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = true
	return nil
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = false
	return nil
}

func (s *Simulator) ReadCoils(address, quantity uint16) ([]bool, error) {
	var values []bool
	err := s.transact(Transaction{Operation: runtime.OperationReadCoils, Address: address, Quantity: quantity}, func() {
		values = make([]bool, quantity)
		for i := range values {
			values[i] = s.coils[address+uint16(i)]
		}
	})
	return values, err
}

func (s *Simulator) WriteCoil(address uint16, value bool) error {
	return s.transact(Transaction{Operation: runtime.OperationWriteCoil, Address: address, Quantity: 1, Value: value}, func() {
		s.coils[address] = value
	})
}

func (s *Simulator) ReadHoldingRegisters(address, quantity uint16) ([]uint16, error) {
	var values []uint16
	err := s.transact(Transaction{Operation: runtime.OperationReadHoldingRegisters, Address: address, Quantity: quantity}, func() {
		values = make([]uint16, quantity)
		for i := range values {
			values[i] = s.registers[address+uint16(i)]
		}
	})
	return values, err
}

func (s *Simulator) WriteRegister(address, value uint16) error {
	return s.transact(Transaction{Operation: runtime.OperationWriteRegister, Address: address, Quantity: 1, Value: value}, func() {
		s.registers[address] = value
	})
}

func (s *Simulator) transact(tx Transaction, apply func()) error {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > 1 {
		s.overlapped = true
	}
	s.transactions = append(s.transactions, tx)
	hook := s.OnTransaction
	err := s.failures[tx.Operation]
	s.mu.Unlock()

	if hook != nil {
		hook(tx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if err != nil {
		return err
	}
	apply()
	return nil
}
