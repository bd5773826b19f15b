package port

import (
	"context"

	"card-grader/internal/domain/entity"
)

// LightingPeripheral интерфейс контроллера подсветки.
// Обработчики вызываются из горутины транспорта.
type LightingPeripheral interface {
	// Connect ищет контроллер и подписывается на уведомления
	Connect(ctx context.Context) error

	// Send записывает команду в характеристику
	Send(ctx context.Context, cmd entity.LightingCommand) error

	// Disconnect закрывает соединение
	Disconnect(ctx context.Context) error

	// OnNotification регистрирует обработчик подтверждений
	OnNotification(handler func(entity.LightingAck))

	// OnDisconnect регистрирует обработчик неожиданного разрыва
	OnDisconnect(handler func(err error))
}
