package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"card-grader/internal/domain/entity"
	"card-grader/internal/domain/port"
)

// maxListed сколько дефектов перечисляется поимённо
const maxListed = 5

var labelTitles = map[string]string{
	"scratch":        "царапина",
	"corner_wear":    "износ угла",
	"surface_damage": "повреждение поверхности",
}

// TextDescriber составляет текстовую сводку по отчёту без внешних сервисов
type TextDescriber struct{}

// NewTextDescriber создаёт описатель
func NewTextDescriber() *TextDescriber {
	return &TextDescriber{}
}

// Describe генерирует описание найденных дефектов
func (d *TextDescriber) Describe(ctx context.Context, report *entity.GradingReport) (*entity.ReportDescription, error) {
	if report == nil {
		return nil, &entity.ValidationError{Reason: "report is nil"}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Карточка %dx%d, режим %s.\n", report.ImageWidth, report.ImageHeight, report.Mode)

	switch {
	case report.Degraded:
		sb.WriteString("⚠️ Модель не отработала, возвращён исходный снимок без разметки.")
	case !report.HasDefects:
		sb.WriteString("✅ Дефекты не обнаружены.")
	default:
		writeDefects(&sb, report)
	}

	return &entity.ReportDescription{Text: sb.String()}, nil
}

func writeDefects(sb *strings.Builder, report *entity.GradingReport) {
	defects := append([]entity.DefectArea(nil), report.Defects...)
	sort.SliceStable(defects, func(i, j int) bool { return defects[i].Score > defects[j].Score })

	counts := make(map[string]int)
	for _, d := range defects {
		counts[title(d.Label)]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	summary := make([]string, len(kinds))
	for i, k := range kinds {
		summary[i] = fmt.Sprintf("%s: %d", k, counts[k])
	}
	fmt.Fprintf(sb, "🔴 Найдено дефектов: %d (%s).\n", len(defects), strings.Join(summary, ", "))

	for i, d := range defects {
		if i == maxListed {
			fmt.Fprintf(sb, "… и ещё %d", len(defects)-maxListed)
			break
		}
		x, y := d.Center()
		fmt.Fprintf(sb, "• %s, уверенность %.0f%%, центр (%d, %d), %dx%d px\n",
			title(d.Label), d.Score*100, x, y, d.Width, d.Height)
	}
}

func title(label string) string {
	if t, ok := labelTitles[label]; ok {
		return t
	}
	return "дефект"
}

// Проверка реализации интерфейса
var _ port.ReportDescriber = (*TextDescriber)(nil)
