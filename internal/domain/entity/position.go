package entity

import "fmt"

// Position положение источника света при съёмке.
type Position int

const (
	PositionTop Position = iota
	PositionRight
	PositionBottom
	PositionLeft
	PositionAllLit
)

// DirectionalOrder фиксированный порядок съёмки направленных кадров.
var DirectionalOrder = [...]Position{PositionTop, PositionRight, PositionBottom, PositionLeft}

func (p Position) String() string {
	switch p {
	case PositionTop:
		return "top"
	case PositionRight:
		return "right"
	case PositionBottom:
		return "bottom"
	case PositionLeft:
		return "left"
	case PositionAllLit:
		return "all"
	default:
		return fmt.Sprintf("position(%d)", int(p))
	}
}

// Directional сообщает, освещается ли позиция одним краем.
func (p Position) Directional() bool {
	return p >= PositionTop && p <= PositionLeft
}
