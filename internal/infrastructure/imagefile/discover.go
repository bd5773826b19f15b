package imagefile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"card-grader/internal/domain/entity"
)

// Extensions поддерживаемые расширения входных кадров.
var Extensions = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".webp"}

var positionTokens = map[string]entity.Position{
	"top":       entity.PositionTop,
	"up":        entity.PositionTop,
	"bottom":    entity.PositionBottom,
	"down":      entity.PositionBottom,
	"left":      entity.PositionLeft,
	"right":     entity.PositionRight,
	"all":       entity.PositionAllLit,
	"reference": entity.PositionAllLit,
}

// Discovered найденные в каталоге файлы по позициям подсветки.
type Discovered map[entity.Position]string

// Missing возвращает направленные позиции без файла.
func (d Discovered) Missing() []entity.Position {
	var missing []entity.Position
	for _, p := range entity.DirectionalOrder {
		if _, ok := d[p]; !ok {
			missing = append(missing, p)
		}
	}
	return missing
}

// Discover ищет в каталоге кадры по словам в имени файла без учёта регистра:
// top|up, bottom|down, left, right, all|reference. Для каждой позиции берётся
// первый файл в алфавитном порядке.
func Discover(dir string) (Discovered, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	found := make(Discovered)
	for _, name := range names {
		pos, ok := positionOf(name)
		if !ok {
			continue
		}
		if _, taken := found[pos]; taken {
			continue
		}
		found[pos] = filepath.Join(dir, name)
	}

	if missing := found.Missing(); len(missing) > 0 {
		parts := make([]string, len(missing))
		for i, p := range missing {
			parts[i] = p.String()
		}
		return found, &entity.ValidationError{Reason: fmt.Sprintf(
			"could not find %s image(s) in %s", strings.Join(parts, ", "), dir)}
	}
	return found, nil
}

func supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// positionOf ищет первое слово имени файла, обозначающее позицию.
func positionOf(name string) (entity.Position, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	words := strings.FieldsFunc(strings.ToLower(stem), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if pos, ok := positionTokens[w]; ok {
			return pos, true
		}
	}
	return 0, false
}
