//go:build ble

package lighting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"card-grader/internal/domain/entity"
	"card-grader/internal/domain/port"
)

// BLEAvailable сообщает, собран ли BLE-транспорт.
const BLEAvailable = true

// BLEConfig параметры поиска контроллера по BLE.
type BLEConfig struct {
	ScanTimeout time.Duration
}

// BLEPeripheral контроллер подсветки на BLE. Команды пишутся в
// характеристику, подтверждения приходят уведомлениями той же характеристики.
type BLEPeripheral struct {
	adapter *bluetooth.Adapter
	cfg     BLEConfig
	logger  *slog.Logger

	mu         sync.Mutex
	char       *bluetooth.DeviceCharacteristic
	disconnect func() error
	closing    bool
	onAck      func(entity.LightingAck)
	onDisc     func(error)
}

// NewBLEPeripheral создаёт транспорт на адаптере по умолчанию.
func NewBLEPeripheral(cfg BLEConfig, logger *slog.Logger) (*BLEPeripheral, error) {
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable bluetooth adapter: %w", err)
	}
	p := &BLEPeripheral{adapter: adapter, cfg: cfg, logger: logger}
	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if !connected {
			p.handleLinkLoss()
		}
	})
	return p, nil
}

func bleUUID(s string) bluetooth.UUID {
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

var (
	serviceUUID        = bleUUID(entity.LightingServiceUUID.String())
	characteristicUUID = bleUUID(entity.LightingCharacteristicUUID.String())
)

// Connect сканирует эфир, подключается к первому устройству с сервисом
// подсветки и подписывается на уведомления.
func (p *BLEPeripheral) Connect(ctx context.Context) error {
	p.mu.Lock()
	connected := p.char != nil
	p.mu.Unlock()
	if connected {
		return nil
	}

	address, err := p.scan(ctx)
	if err != nil {
		return err
	}

	device, err := p.adapter.Connect(address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connect %s: %w", address.String(), err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil || len(services) == 0 {
		_ = device.Disconnect()
		return fmt.Errorf("discover lighting service: %w", errors.Join(entity.ErrNoDevice, err))
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{characteristicUUID})
	if err != nil || len(chars) == 0 {
		_ = device.Disconnect()
		return fmt.Errorf("discover lighting characteristic: %w", errors.Join(entity.ErrNoDevice, err))
	}
	char := chars[0]

	if err := char.EnableNotifications(p.handleNotification); err != nil {
		_ = device.Disconnect()
		return fmt.Errorf("enable notifications: %w", err)
	}

	p.mu.Lock()
	p.char = &char
	p.disconnect = device.Disconnect
	p.closing = false
	p.mu.Unlock()

	p.logger.Info("lighting device connected", "transport", "ble", "address", address.String())
	return nil
}

func (p *BLEPeripheral) scan(ctx context.Context) (bluetooth.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ScanTimeout)
	defer cancel()

	found := make(chan bluetooth.Address, 1)
	scanErr := make(chan error, 1)
	go func() {
		scanErr <- p.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !result.HasServiceUUID(serviceUUID) && result.LocalName() != entity.LightingDeviceName {
				return
			}
			select {
			case found <- result.Address:
			default:
			}
			_ = adapter.StopScan()
		})
	}()

	select {
	case address := <-found:
		return address, nil
	case err := <-scanErr:
		if err != nil {
			return bluetooth.Address{}, fmt.Errorf("scan: %w", err)
		}
		select {
		case address := <-found:
			return address, nil
		default:
			return bluetooth.Address{}, entity.ErrNoDevice
		}
	case <-ctx.Done():
		_ = p.adapter.StopScan()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return bluetooth.Address{}, entity.ErrNoDevice
		}
		return bluetooth.Address{}, ctx.Err()
	}
}

func (p *BLEPeripheral) handleNotification(buf []byte) {
	ack, ok := DecodeAck(buf)
	if !ok {
		p.logger.Debug("unknown notification ignored", "payload", string(buf))
		return
	}
	p.mu.Lock()
	handler := p.onAck
	p.mu.Unlock()
	if handler != nil {
		handler(ack)
	}
}

func (p *BLEPeripheral) handleLinkLoss() {
	p.mu.Lock()
	wasConnected := p.char != nil
	intentional := p.closing
	p.char = nil
	p.disconnect = nil
	handler := p.onDisc
	p.mu.Unlock()

	if !wasConnected || intentional || handler == nil {
		return
	}
	handler(entity.ErrDisconnected)
}

// Send пишет имя команды в характеристику.
func (p *BLEPeripheral) Send(ctx context.Context, cmd entity.LightingCommand) error {
	payload, err := EncodeCommand(cmd, false)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	char := p.char
	p.mu.Unlock()
	if char == nil {
		return entity.ErrNotConnected
	}
	if _, err := char.WriteWithoutResponse(payload); err != nil {
		return fmt.Errorf("write %s: %w", cmd, err)
	}
	return nil
}

// Disconnect разрывает BLE-соединение.
func (p *BLEPeripheral) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	disconnect := p.disconnect
	p.char = nil
	p.disconnect = nil
	p.closing = true
	p.mu.Unlock()

	if disconnect == nil {
		return nil
	}
	return disconnect()
}

// OnNotification регистрирует обработчик подтверждений.
func (p *BLEPeripheral) OnNotification(handler func(entity.LightingAck)) {
	p.mu.Lock()
	p.onAck = handler
	p.mu.Unlock()
}

// OnDisconnect регистрирует обработчик обрыва связи.
func (p *BLEPeripheral) OnDisconnect(handler func(err error)) {
	p.mu.Lock()
	p.onDisc = handler
	p.mu.Unlock()
}

var _ port.LightingPeripheral = (*BLEPeripheral)(nil)
