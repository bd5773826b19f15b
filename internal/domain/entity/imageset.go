package entity

import (
	"fmt"
	"image"
)

// DirectionalImageSet пять полутоновых кадров одного прогона.
// Reference хранит цветной кадр при полной подсветке, на нём рисуются дефекты.
type DirectionalImageSet struct {
	Top       *image.Gray
	Right     *image.Gray
	Bottom    *image.Gray
	Left      *image.Gray
	AllLit    *image.Gray
	Reference *image.RGBA
}

// Get возвращает кадр по позиции.
func (s *DirectionalImageSet) Get(p Position) *image.Gray {
	switch p {
	case PositionTop:
		return s.Top
	case PositionRight:
		return s.Right
	case PositionBottom:
		return s.Bottom
	case PositionLeft:
		return s.Left
	case PositionAllLit:
		return s.AllLit
	}
	return nil
}

// Set сохраняет кадр по позиции.
func (s *DirectionalImageSet) Set(p Position, img *image.Gray) {
	switch p {
	case PositionTop:
		s.Top = img
	case PositionRight:
		s.Right = img
	case PositionBottom:
		s.Bottom = img
	case PositionLeft:
		s.Left = img
	case PositionAllLit:
		s.AllLit = img
	}
}

// Size возвращает размер верхнего кадра.
func (s *DirectionalImageSet) Size() (width, height int) {
	if s.Top == nil {
		return 0, 0
	}
	b := s.Top.Bounds()
	return b.Dx(), b.Dy()
}

// ValidateDirectional проверяет, что четыре направленных кадра на месте
// и имеют одинаковый размер.
func (s *DirectionalImageSet) ValidateDirectional() error {
	if s == nil {
		return &ValidationError{Reason: "image set is nil"}
	}
	var want image.Rectangle
	for i, p := range DirectionalOrder {
		img := s.Get(p)
		if img == nil {
			return &ValidationError{Reason: fmt.Sprintf("%s image is missing", p)}
		}
		size := image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy())
		if size.Empty() {
			return &ValidationError{Reason: fmt.Sprintf("%s image is empty", p)}
		}
		if i == 0 {
			want = size
			continue
		}
		if size != want {
			return &ValidationError{Reason: fmt.Sprintf(
				"%s image is %dx%d, expected %dx%d", p, size.Dx(), size.Dy(), want.Dx(), want.Dy())}
		}
	}
	return nil
}

// Validate проверяет весь набор: пять кадров и эталон одного размера.
func (s *DirectionalImageSet) Validate() error {
	if err := s.ValidateDirectional(); err != nil {
		return err
	}
	w, h := s.Size()
	if s.AllLit == nil {
		return &ValidationError{Reason: "all image is missing"}
	}
	if b := s.AllLit.Bounds(); b.Dx() != w || b.Dy() != h {
		return &ValidationError{Reason: fmt.Sprintf("all image is %dx%d, expected %dx%d", b.Dx(), b.Dy(), w, h)}
	}
	if s.Reference != nil {
		if b := s.Reference.Bounds(); b.Dx() != w || b.Dy() != h {
			return &ValidationError{Reason: fmt.Sprintf("reference image is %dx%d, expected %dx%d", b.Dx(), b.Dy(), w, h)}
		}
	}
	return nil
}
