package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"card-grader/internal/domain/entity"
	"card-grader/internal/domain/port"
	"card-grader/internal/infrastructure/imagefile"
	"card-grader/internal/infrastructure/vision"
)

const reportSchema = `
	CREATE TABLE IF NOT EXISTS reports (
		run_id       TEXT PRIMARY KEY,
		created_at   BIGINT NOT NULL,
		mode         TEXT NOT NULL,
		image_width  INTEGER NOT NULL,
		image_height INTEGER NOT NULL,
		degraded     BOOLEAN NOT NULL,
		defects      BLOB,
		annotated    BLOB,
		overlay      BLOB
	);
	CREATE INDEX IF NOT EXISTS reports_created_at ON reports (created_at);
`

// отчёты кодируются детерминированно: одинаковые дефекты дают одинаковые байты
var defectsEncMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}
	return mode
}()

// SQLiteReportRepository хранит отчёты в SQLite: метаданные в колонках,
// дефекты в CBOR, изображения в PNG
type SQLiteReportRepository struct {
	db    *sql.DB
	limit int
}

// NewSQLiteReportRepository открывает базу и создаёт схему.
// limit <= 0 означает DefaultHistory.
func NewSQLiteReportRepository(path string, limit int) (*SQLiteReportRepository, error) {
	if limit <= 0 {
		limit = DefaultHistory
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite допускает одного писателя
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(reportSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create report schema: %w", err)
	}
	return &SQLiteReportRepository{db: db, limit: limit}, nil
}

// Get возвращает отчёт по идентификатору прогона
func (r *SQLiteReportRepository) Get(ctx context.Context, runID uuid.UUID) (*entity.GradingReport, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT run_id, created_at, mode, image_width, image_height, degraded, defects, annotated, overlay
		FROM reports WHERE run_id = ?`, runID.String())
	return scanReport(row)
}

// Latest возвращает последний сохранённый отчёт
func (r *SQLiteReportRepository) Latest(ctx context.Context) (*entity.GradingReport, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT run_id, created_at, mode, image_width, image_height, degraded, defects, annotated, overlay
		FROM reports ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	return scanReport(row)
}

// Save сохраняет отчёт и удаляет самые старые сверх лимита
func (r *SQLiteReportRepository) Save(ctx context.Context, report *entity.GradingReport) error {
	if report == nil {
		return &entity.ValidationError{Reason: "report is nil"}
	}

	defects, err := defectsEncMode.Marshal(report.Defects)
	if err != nil {
		return fmt.Errorf("encode defects: %w", err)
	}
	annotated, err := encodeOptional(report.Annotated)
	if err != nil {
		return fmt.Errorf("encode annotated image: %w", err)
	}
	overlay, err := encodeOptional(report.Overlay)
	if err != nil {
		return fmt.Errorf("encode overlay: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO reports
			(run_id, created_at, mode, image_width, image_height, degraded, defects, annotated, overlay)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID.String(), report.CreatedAt.UnixNano(), string(report.Mode),
		report.ImageWidth, report.ImageHeight, report.Degraded, defects, annotated, overlay)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM reports WHERE run_id NOT IN (
			SELECT run_id FROM reports ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, r.limit)
	if err != nil {
		return fmt.Errorf("trim report history: %w", err)
	}
	return tx.Commit()
}

// Close закрывает базу
func (r *SQLiteReportRepository) Close() error {
	return r.db.Close()
}

func scanReport(row *sql.Row) (*entity.GradingReport, error) {
	var (
		runID, mode       string
		createdAt         int64
		width, height     int
		degraded          bool
		defects, ann, ovl []byte
	)
	err := row.Scan(&runID, &createdAt, &mode, &width, &height, &degraded, &defects, &ann, &ovl)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("stored run id %q: %w", runID, err)
	}
	report := &entity.GradingReport{
		RunID:       id,
		CreatedAt:   time.Unix(0, createdAt),
		Mode:        entity.CompositeMode(mode),
		ImageWidth:  width,
		ImageHeight: height,
		Degraded:    degraded,
	}
	if len(defects) > 0 {
		if err := cbor.Unmarshal(defects, &report.Defects); err != nil {
			return nil, fmt.Errorf("decode defects: %w", err)
		}
	}
	report.HasDefects = len(report.Defects) > 0

	if report.Annotated, err = decodeOptional(ann); err != nil {
		return nil, fmt.Errorf("decode annotated image: %w", err)
	}
	if report.Overlay, err = decodeOptional(ovl); err != nil {
		return nil, fmt.Errorf("decode overlay: %w", err)
	}
	return report, nil
}

func encodeOptional(img *image.RGBA) ([]byte, error) {
	if img == nil {
		return nil, nil
	}
	return imagefile.EncodePNG(img)
}

func decodeOptional(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, nil
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return vision.ToRGBA(img), nil
}

var _ port.ReportRepository = (*SQLiteReportRepository)(nil)
