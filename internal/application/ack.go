package app

import (
	"sync"

	"card-grader/internal/domain/entity"
)

type ackResult struct {
	ack entity.LightingAck
	err error
}

// ackSlot реализует рандеву на одну команду: ожидание создаётся до записи команды,
// уведомление закрывает ровно одно ожидание.
type ackSlot struct {
	mu      sync.Mutex
	pending chan ackResult
}

// arm открывает ожидание. Второе ожидание без разрешения первого считается ошибкой протокола.
func (s *ackSlot) arm() (<-chan ackResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return nil, entity.ErrCommandInFlight
	}
	ch := make(chan ackResult, 1)
	s.pending = ch
	return ch, nil
}

// resolve передаёт подтверждение текущему ожиданию.
func (s *ackSlot) resolve(ack entity.LightingAck) bool {
	return s.complete(ackResult{ack: ack})
}

// fail прерывает текущее ожидание ошибкой.
func (s *ackSlot) fail(err error) bool {
	return s.complete(ackResult{err: err})
}

func (s *ackSlot) complete(res ackResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return false
	}
	s.pending <- res
	s.pending = nil
	return true
}

// disarm снимает ожидание без результата.
func (s *ackSlot) disarm() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}
