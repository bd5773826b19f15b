package entity

import (
	"fmt"

	"github.com/google/uuid"
)

// UUID сервиса и характеристики контроллера подсветки.
var (
	LightingServiceUUID        = uuid.MustParse("7123acc7-b24d-4eee-9c7f-ee6302637aef")
	LightingCharacteristicUUID = uuid.MustParse("8be0f272-b3be-4351-a3fc-d57341aa628e")
)

// LightingDeviceName имя, под которым контроллер рекламирует себя.
const LightingDeviceName = "Baseball Card Grader Device"

// LightingCommand команда контроллеру подсветки.
type LightingCommand string

const (
	CommandNone        LightingCommand = "None"
	CommandUpOn        LightingCommand = "UpOn"
	CommandDownOn      LightingCommand = "DownOn"
	CommandLeftOn      LightingCommand = "LeftOn"
	CommandRightOn     LightingCommand = "RightOn"
	CommandUpPulse     LightingCommand = "UpPulse"
	CommandDownPulse   LightingCommand = "DownPulse"
	CommandLeftPulse   LightingCommand = "LeftPulse"
	CommandRightPulse  LightingCommand = "RightPulse"
	CommandToggleAllOn LightingCommand = "ToggleAllOn"
)

var knownCommands = map[LightingCommand]struct{}{
	CommandNone: {}, CommandUpOn: {}, CommandDownOn: {}, CommandLeftOn: {}, CommandRightOn: {},
	CommandUpPulse: {}, CommandDownPulse: {}, CommandLeftPulse: {}, CommandRightPulse: {},
	CommandToggleAllOn: {},
}

func (c LightingCommand) String() string { return string(c) }

// Valid сообщает, входит ли команда в словарь контроллера.
func (c LightingCommand) Valid() bool {
	_, ok := knownCommands[c]
	return ok
}

// ExpectedAck подтверждение, которое контроллер пришлёт на команду.
func (c LightingCommand) ExpectedAck() LightingAck {
	if c == CommandNone {
		return AckLedOff
	}
	return AckLedOn
}

// CommandFor возвращает команду включения света для позиции.
func CommandFor(p Position, pulse bool) (LightingCommand, error) {
	switch p {
	case PositionTop:
		if pulse {
			return CommandUpPulse, nil
		}
		return CommandUpOn, nil
	case PositionBottom:
		if pulse {
			return CommandDownPulse, nil
		}
		return CommandDownOn, nil
	case PositionLeft:
		if pulse {
			return CommandLeftPulse, nil
		}
		return CommandLeftOn, nil
	case PositionRight:
		if pulse {
			return CommandRightPulse, nil
		}
		return CommandRightOn, nil
	case PositionAllLit:
		return CommandToggleAllOn, nil
	}
	return CommandNone, fmt.Errorf("no lighting command for %s", p)
}

// LightingAck уведомление контроллера о смене состояния света.
type LightingAck string

const (
	AckLedOn  LightingAck = "LedOn"
	AckLedOff LightingAck = "LedOff"
)

func (a LightingAck) String() string { return string(a) }

// ParseLightingAck разбирает имя уведомления.
func ParseLightingAck(value string) (LightingAck, bool) {
	switch LightingAck(value) {
	case AckLedOn:
		return AckLedOn, true
	case AckLedOff:
		return AckLedOff, true
	}
	return "", false
}
