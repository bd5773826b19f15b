package entity

// DefectArea представляет область с обнаруженным дефектом
type DefectArea struct {
	X        int     // координата X левого верхнего угла
	Y        int     // координата Y левого верхнего угла
	Width    int     // ширина области в пикселях
	Height   int     // высота области в пикселях
	Area     int     // площадь области в пикселях
	Label    string  // класс дефекта
	Score    float32 // уверенность модели
	Coverage float64 // доля пикселей маски выше порога
}

// Center возвращает координаты центра дефекта
func (d DefectArea) Center() (x, y int) {
	return d.X + d.Width/2, d.Y + d.Height/2
}

// DefectLabels имена классов модели, индекс 0 зарезервирован под фон.
var DefectLabels = []string{"background", "scratch", "corner_wear", "surface_damage"}

// LabelName возвращает имя класса по индексу модели.
func LabelName(label int64) string {
	if label >= 0 && int(label) < len(DefectLabels) {
		return DefectLabels[label]
	}
	return "defect"
}
