package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// Serial drives a receiver transmitter attached to a serial port. Each
// command is written as one text line:
//
//	<receiver> <action> <power> <duration-ms>\n
type Serial struct {
	portName string
	mode     *serial.Mode
	port     serial.Port
	log      *zap.Logger
	mu       sync.Mutex
}

// NewSerial prepares a serial actuator. The port is opened lazily and
// reopened after a write error.
func NewSerial(portName string, baud int, log *zap.Logger) *Serial {
	return &Serial{
		portName: portName,
		mode: &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			StopBits: serial.OneStopBit,
			Parity:   serial.NoParity,
		},
		log: log.Named("serial"),
	}
}

func (s *Serial) open() (serial.Port, error) {
	if s.port != nil {
		return s.port, nil
	}
	port, err := serial.Open(s.portName, s.mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.portName, err)
	}
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		port.Close()
		return nil, err
	}
	s.log.Info("Serial port opened", zap.String("port", s.portName), zap.Int("baud", s.mode.BaudRate))
	s.port = port
	return port, nil
}

// Command writes cmd to the port.
func (s *Serial) Command(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	port, err := s.open()
	if err != nil {
		return err
	}
	line := FormatLine(cmd)
	if _, err := port.Write([]byte(line)); err != nil {
		s.log.Warn("Serial write failed", zap.Error(err))
		port.Close()
		s.port = nil
		return fmt.Errorf("write %s: %w", s.portName, err)
	}
	return nil
}

// Close releases the port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// FormatLine renders cmd in the serial line protocol.
func FormatLine(cmd Command) string {
	return fmt.Sprintf("%d %s %d %d\n", cmd.Receiver, cmd.Action, cmd.Power, cmd.Duration.Milliseconds())
}
