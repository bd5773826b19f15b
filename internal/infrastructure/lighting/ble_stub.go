//go:build !ble

package lighting

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"card-grader/internal/domain/entity"
	"card-grader/internal/domain/port"
)

// BLEAvailable сообщает, собран ли BLE-транспорт.
const BLEAvailable = false

var errNoBLE = errors.New("BLE transport is not built in (rebuild with -tags ble)")

// BLEConfig параметры поиска контроллера по BLE.
type BLEConfig struct {
	ScanTimeout time.Duration
}

// BLEPeripheral заглушка для сборки без BLE.
type BLEPeripheral struct{}

// NewBLEPeripheral всегда возвращает ошибку в сборке без BLE.
func NewBLEPeripheral(cfg BLEConfig, logger *slog.Logger) (*BLEPeripheral, error) {
	return nil, errNoBLE
}

func (p *BLEPeripheral) Connect(ctx context.Context) error { return errNoBLE }

func (p *BLEPeripheral) Send(ctx context.Context, cmd entity.LightingCommand) error {
	return errNoBLE
}

func (p *BLEPeripheral) Disconnect(ctx context.Context) error { return nil }

func (p *BLEPeripheral) OnNotification(handler func(entity.LightingAck)) {}

func (p *BLEPeripheral) OnDisconnect(handler func(err error)) {}

var _ port.LightingPeripheral = (*BLEPeripheral)(nil)
