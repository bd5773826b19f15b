package entity

// PipelineState этап сценария оценки карточки.
type PipelineState string

const (
	StateDisconnected     PipelineState = "disconnected"      // Контроллер не подключён
	StateScanning         PipelineState = "scanning"          // Поиск контроллера
	StateConnected        PipelineState = "connected"         // Готов к съёмке
	StateCapturing        PipelineState = "capturing"         // Идёт съёмка
	StateProcessingImages PipelineState = "processing_images" // Кадры переданы на обработку
	StateFailed           PipelineState = "failed"            // Прогон прерван, нужно переподключение
)

var transitions = map[PipelineState][]PipelineState{
	StateDisconnected:     {StateScanning},
	StateScanning:         {StateConnected, StateDisconnected, StateFailed},
	StateConnected:        {StateCapturing, StateDisconnected},
	StateCapturing:        {StateProcessingImages, StateFailed, StateDisconnected},
	StateProcessingImages: {StateConnected, StateDisconnected},
	StateFailed:           {StateScanning, StateDisconnected},
}

// CanTransition сообщает, допустим ли переход между состояниями.
func (s PipelineState) CanTransition(to PipelineState) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// NeedsReconnect сообщает, что для новой съёмки нужно заново подключиться.
func (s PipelineState) NeedsReconnect() bool {
	return s == StateDisconnected || s == StateFailed
}
