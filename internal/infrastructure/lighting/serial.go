package lighting

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"go.bug.st/serial"

	"card-grader/internal/domain/entity"
	"card-grader/internal/domain/port"
)

// DefaultBaudRate скорость порта прошивки контроллера.
const DefaultBaudRate = 115200

// PortOpener открывает порт. Подменяется в тестах.
type PortOpener func(path string, mode *serial.Mode) (io.ReadWriteCloser, error)

// PortLister перечисляет доступные порты.
type PortLister func() ([]string, error)

// SerialConfig параметры подключения по USB-serial.
// Пустой Path включает поиск среди доступных портов.
type SerialConfig struct {
	Path     string
	BaudRate int
}

// SerialPeripheral контроллер подсветки на последовательном порту.
// Команды и подтверждения идут строками, разделёнными переводом строки.
type SerialPeripheral struct {
	cfg    SerialConfig
	open   PortOpener
	list   PortLister
	logger *slog.Logger

	mu        sync.Mutex
	port      io.ReadWriteCloser
	done      chan struct{}
	closing   bool
	onAck     func(entity.LightingAck)
	onDisc    func(error)
	commandMu sync.Mutex
}

// NewSerialPeripheral создаёт транспорт поверх go.bug.st/serial.
func NewSerialPeripheral(cfg SerialConfig, logger *slog.Logger) *SerialPeripheral {
	return NewSerialPeripheralWith(cfg, openSerial, serial.GetPortsList, logger)
}

// NewSerialPeripheralWith создаёт транспорт с заданными функциями открытия и поиска портов.
func NewSerialPeripheralWith(cfg SerialConfig, open PortOpener, list PortLister, logger *slog.Logger) *SerialPeripheral {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SerialPeripheral{cfg: cfg, open: open, list: list, logger: logger}
}

func openSerial(path string, mode *serial.Mode) (io.ReadWriteCloser, error) {
	return serial.Open(path, mode)
}

// Connect открывает порт и запускает чтение уведомлений.
func (p *SerialPeripheral) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := p.resolvePath()
	if err != nil {
		return err
	}
	rw, err := p.open(path, &serial.Mode{
		BaudRate: p.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	p.port = rw
	p.closing = false
	p.done = make(chan struct{})
	go p.readLoop(rw, p.done)

	p.logger.Info("lighting device connected", "transport", "serial", "port", path, "baud", p.cfg.BaudRate)
	return nil
}

func (p *SerialPeripheral) resolvePath() (string, error) {
	if p.cfg.Path != "" {
		return p.cfg.Path, nil
	}
	if p.list == nil {
		return "", entity.ErrNoDevice
	}
	ports, err := p.list()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	for _, name := range ports {
		if looksLikeController(name) {
			return name, nil
		}
	}
	return "", entity.ErrNoDevice
}

// looksLikeController отбирает USB-serial порты микроконтроллеров.
func looksLikeController(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"ttyusb", "ttyacm", "usbserial", "usbmodem"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.HasPrefix(lower, "com")
}

func (p *SerialPeripheral) readLoop(rw io.Reader, done chan struct{}) {
	defer close(done)

	scan := bufio.NewScanner(rw)
	for scan.Scan() {
		ack, ok := DecodeAck(scan.Bytes())
		if !ok {
			p.logger.Debug("unknown notification ignored", "line", scan.Text())
			continue
		}
		p.mu.Lock()
		handler := p.onAck
		p.mu.Unlock()
		if handler != nil {
			handler(ack)
		}
	}

	err := scan.Err()
	if err == nil {
		err = io.EOF
	}

	p.mu.Lock()
	intentional := p.closing
	if !intentional {
		p.port = nil
	}
	handler := p.onDisc
	p.mu.Unlock()

	if intentional {
		return
	}
	if rw, ok := rw.(io.Closer); ok {
		_ = rw.Close()
	}
	if handler != nil {
		handler(err)
	}
}

// Send пишет имя команды в порт.
func (p *SerialPeripheral) Send(ctx context.Context, cmd entity.LightingCommand) error {
	payload, err := EncodeCommand(cmd, true)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	rw := p.port
	p.mu.Unlock()
	if rw == nil {
		return entity.ErrNotConnected
	}

	p.commandMu.Lock()
	defer p.commandMu.Unlock()
	n, err := rw.Write(payload)
	if err != nil {
		return fmt.Errorf("write %s: %w", cmd, err)
	}
	if n != len(payload) {
		return fmt.Errorf("write %s: short write (%d of %d bytes)", cmd, n, len(payload))
	}
	return nil
}

// Disconnect закрывает порт и дожидается остановки чтения.
func (p *SerialPeripheral) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	rw, done := p.port, p.done
	p.port = nil
	p.closing = true
	p.mu.Unlock()

	if rw == nil {
		return nil
	}
	closeErr := rw.Close()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if closeErr != nil && !errors.Is(closeErr, io.ErrClosedPipe) {
		return closeErr
	}
	return nil
}

// OnNotification регистрирует обработчик подтверждений.
func (p *SerialPeripheral) OnNotification(handler func(entity.LightingAck)) {
	p.mu.Lock()
	p.onAck = handler
	p.mu.Unlock()
}

// OnDisconnect регистрирует обработчик обрыва связи.
func (p *SerialPeripheral) OnDisconnect(handler func(err error)) {
	p.mu.Lock()
	p.onDisc = handler
	p.mu.Unlock()
}

var _ port.LightingPeripheral = (*SerialPeripheral)(nil)
