package tracking

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog"
)

// SerialSource reads newline-delimited JSON tracker states from a serial
// port.
type SerialSource struct {
	*latest
	port   io.ReadCloser
	logger zerolog.Logger
	done   chan struct{}
}

// OpenSerialSource opens portName at baudRate and starts reading.
func OpenSerialSource(portName string, baudRate int, maxAge time.Duration, logger zerolog.Logger) (*SerialSource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open tracker serial port %s: %w", portName, err)
	}
	logger.Info().Str("port", portName).Int("baud", baudRate).Msg("tracker serial port opened")
	return newSerialSource(port, maxAge, time.Now, logger), nil
}

func newSerialSource(port io.ReadCloser, maxAge time.Duration, now func() time.Time, logger zerolog.Logger) *SerialSource {
	s := &SerialSource{
		latest: newLatest(maxAge, now),
		port:   port,
		logger: logger,
		done:   make(chan struct{}),
	}
	go s.read()
	return s
}

func (s *SerialSource) read() {
	defer close(s.done)
	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		sample, err := DecodeState(line)
		if err != nil {
			s.logger.Warn().Err(err).Msg("dropping tracker line")
			continue
		}
		s.put(sample)
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("tracker serial read stopped")
	}
}

// Done is closed when the reader goroutine exits.
func (s *SerialSource) Done() <-chan struct{} { return s.done }

// Close closes the port and waits for the reader to exit.
func (s *SerialSource) Close() error {
	err := s.port.Close()
	<-s.done
	return err
}
