package lighting

import (
	"fmt"
	"strings"

	"card-grader/internal/domain/entity"
)

// EncodeCommand переводит команду в строку протокола.
// В BLE уходит голое имя, в последовательный порт имя с переводом строки.
func EncodeCommand(cmd entity.LightingCommand, newline bool) ([]byte, error) {
	if !cmd.Valid() {
		return nil, fmt.Errorf("unknown lighting command %q", string(cmd))
	}
	if newline {
		return []byte(cmd.String() + "\n"), nil
	}
	return []byte(cmd.String()), nil
}

// DecodeAck разбирает уведомление контроллера. Чужие строки игнорируются.
func DecodeAck(raw []byte) (entity.LightingAck, bool) {
	return entity.ParseLightingAck(strings.TrimSpace(string(raw)))
}
