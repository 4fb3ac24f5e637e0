package repository

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"entgo.io/ent/dialect/sql"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/constants"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/entity"
)

const fileTranslationTable = "file_translation_logs"

var fileTranslationColumns = []string{
	"file_name", "landing_zone_path", "file_type",
	"upload_date", "upload_datetime", "upload_status", "uploaded_by",
	"from_language", "to_language", "exclusion_text", "prompt_id",
	"translation_date", "translation_datetime", "translation_status",
	"translated_zone_path", "glossary_zone_path", "glossary_processing_status", "glossary_content",
	"watermark_date", "watermark_datetime", "watermark_status", "watermark_zone_path",
}

// FileTranslationRepository records the per-file status row.
type FileTranslationRepository interface {
	Create(ctx context.Context, f entity.UploadFacet) error
	Exists(ctx context.Context, fileName string) (bool, error)
	UniqueFileName(ctx context.Context, fileName string, now time.Time) (string, error)
	Get(ctx context.Context, fileName string) (*entity.FileTranslation, error)
	GetMetadata(ctx context.Context, fileName string) (*entity.Metadata, error)
	UpdateTranslation(ctx context.Context, fileName string, f entity.TranslationFacet) error
	UpdateWatermark(ctx context.Context, fileName string, f entity.WatermarkFacet) error
	ListByDate(ctx context.Context, day time.Time) ([]entity.FileTranslation, error)
	ListAll(ctx context.Context) ([]entity.FileTranslation, error)
}

type fileTranslationRepo struct {
	db  *DB
	log *slog.Logger
}

func NewFileTranslationRepository(db *DB, log *slog.Logger) FileTranslationRepository {
	if log == nil {
		log = slog.Default()
	}
	return &fileTranslationRepo{db: db, log: log}
}

func (r *fileTranslationRepo) builder() *sql.DialectBuilder {
	return sql.Dialect(r.db.Dialect())
}

func (r *fileTranslationRepo) Create(ctx context.Context, f entity.UploadFacet) error {
	uploadedBy := f.UploadedBy
	if strings.TrimSpace(uploadedBy) == "" {
		uploadedBy = constants.UnknownUploader
	}
	var promptID any
	if f.PromptID != nil {
		promptID = *f.PromptID
	}
	query, args := r.builder().Insert(fileTranslationTable).
		Columns("file_name", "landing_zone_path", "file_type", "upload_date", "upload_datetime",
			"upload_status", "uploaded_by", "from_language", "to_language", "exclusion_text", "prompt_id").
		Values(f.FileName, f.LandingZonePath, f.FileType, dateOf(f.UploadedAt), f.UploadedAt.UTC(),
			string(f.Status), uploadedBy, f.FromLanguage, f.ToLanguage, f.ExclusionText, promptID).
		Query()

	var res stdsql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		r.log.Error("file record insert failed", "file_name", f.FileName, "err", err)
		return classify(err)
	}
	r.log.Info("file record created", "file_name", f.FileName, "status", f.Status, "file_type", f.FileType)
	return nil
}

func (r *fileTranslationRepo) Exists(ctx context.Context, fileName string) (bool, error) {
	query, args := r.builder().Select().Count().
		From(r.builder().Table(fileTranslationTable)).
		Where(sql.EQ("file_name", fileName)).
		Query()

	rows := &sql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		r.log.Error("file record lookup failed", "file_name", fileName, "err", err)
		return false, classify(err)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, classify(err)
		}
	}
	if err := rows.Err(); err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

// UniqueFileName returns fileName unchanged when unused, otherwise the name
// with a _YYYYMMDDHHMMSS suffix before the extension.
func (r *fileTranslationRepo) UniqueFileName(ctx context.Context, fileName string, now time.Time) (string, error) {
	exists, err := r.Exists(ctx, fileName)
	if err != nil {
		return "", err
	}
	if !exists {
		return fileName, nil
	}
	ext := path.Ext(fileName)
	unique := strings.TrimSuffix(fileName, ext) + now.Format("_20060102150405") + ext
	r.log.Info("file name exists, using unique name", "file_name", fileName, "unique_name", unique)
	return unique, nil
}

func (r *fileTranslationRepo) Get(ctx context.Context, fileName string) (*entity.FileTranslation, error) {
	query, args := r.builder().Select(fileTranslationColumns...).
		From(r.builder().Table(fileTranslationTable)).
		Where(sql.EQ("file_name", fileName)).
		Query()

	recs, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("file %q: %w", fileName, common.ErrNotFound)
	}
	return &recs[0], nil
}

func (r *fileTranslationRepo) GetMetadata(ctx context.Context, fileName string) (*entity.Metadata, error) {
	rec, err := r.Get(ctx, fileName)
	if err != nil {
		return nil, err
	}
	return &entity.Metadata{
		FromLanguage:  rec.FromLanguage,
		ToLanguage:    rec.ToLanguage,
		ExclusionText: rec.ExclusionText,
		PromptID:      rec.PromptID,
	}, nil
}

func (r *fileTranslationRepo) UpdateTranslation(ctx context.Context, fileName string, f entity.TranslationFacet) error {
	upd := r.builder().Update(fileTranslationTable).
		Set("translation_date", dateOf(f.At)).
		Set("translation_datetime", f.At.UTC()).
		Set("translation_status", string(f.Status)).
		Set("glossary_processing_status", string(f.GlossaryStatus))
	upd = setNullable(upd, "translated_zone_path", f.TranslatedPath)
	upd = setNullable(upd, "glossary_zone_path", f.GlossaryPath)
	upd = setNullable(upd, "glossary_content", f.GlossaryContent)
	query, args := upd.Where(sql.EQ("file_name", fileName)).Query()

	if err := r.execUpdate(ctx, fileName, query, args); err != nil {
		r.log.Error("translation facet update failed", "file_name", fileName, "status", f.Status, "err", err)
		return err
	}
	r.log.Info("translation facet updated", "file_name", fileName, "status", f.Status, "glossary_status", f.GlossaryStatus)
	return nil
}

func (r *fileTranslationRepo) UpdateWatermark(ctx context.Context, fileName string, f entity.WatermarkFacet) error {
	upd := r.builder().Update(fileTranslationTable).
		Set("watermark_date", dateOf(f.At)).
		Set("watermark_datetime", f.At.UTC()).
		Set("watermark_status", string(f.Status))
	upd = setNullable(upd, "watermark_zone_path", f.Path)
	query, args := upd.Where(sql.EQ("file_name", fileName)).Query()

	if err := r.execUpdate(ctx, fileName, query, args); err != nil {
		r.log.Error("watermark facet update failed", "file_name", fileName, "status", f.Status, "err", err)
		return err
	}
	r.log.Info("watermark facet updated", "file_name", fileName, "status", f.Status)
	return nil
}

func (r *fileTranslationRepo) ListByDate(ctx context.Context, day time.Time) ([]entity.FileTranslation, error) {
	query, args := r.builder().Select(fileTranslationColumns...).
		From(r.builder().Table(fileTranslationTable)).
		Where(sql.EQ("upload_date", dateOf(day))).
		OrderBy(sql.Desc("upload_datetime")).
		Query()
	return r.query(ctx, query, args)
}

func (r *fileTranslationRepo) ListAll(ctx context.Context) ([]entity.FileTranslation, error) {
	query, args := r.builder().Select(fileTranslationColumns...).
		From(r.builder().Table(fileTranslationTable)).
		OrderBy(sql.Desc("upload_datetime")).
		Query()
	return r.query(ctx, query, args)
}

// execUpdate runs an UPDATE and turns "no row matched" into ErrNotFound.
func (r *fileTranslationRepo) execUpdate(ctx context.Context, fileName, query string, args []any) error {
	var res stdsql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return fmt.Errorf("file %q: %w", fileName, common.ErrNotFound)
	}
	return nil
}

func (r *fileTranslationRepo) query(ctx context.Context, query string, args []any) ([]entity.FileTranslation, error) {
	rows := &sql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		r.log.Error("file records query failed", "err", err)
		return nil, classify(err)
	}
	defer rows.Close()

	var out []entity.FileTranslation
	for rows.Next() {
		rec, err := scanFileTranslation(rows)
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func scanFileTranslation(rows *sql.Rows) (entity.FileTranslation, error) {
	var (
		rec                                      entity.FileTranslation
		uploadDate, uploadAt                     nullTime
		translationDate, translationAt           nullTime
		watermarkDate, watermarkAt               nullTime
		uploadStatus, translationStatus          stdsql.NullString
		glossaryStatus, watermarkStatus          stdsql.NullString
		translatedPath, glossaryPath, content    stdsql.NullString
		watermarkPath, uploadedBy, exclusionText stdsql.NullString
		promptID                                 stdsql.NullInt64
	)
	err := rows.Scan(
		&rec.FileName, &rec.LandingZonePath, &rec.FileType,
		&uploadDate, &uploadAt, &uploadStatus, &uploadedBy,
		&rec.FromLanguage, &rec.ToLanguage, &exclusionText, &promptID,
		&translationDate, &translationAt, &translationStatus,
		&translatedPath, &glossaryPath, &glossaryStatus, &content,
		&watermarkDate, &watermarkAt, &watermarkStatus, &watermarkPath,
	)
	if err != nil {
		return rec, err
	}
	rec.UploadDate, rec.UploadDatetime = uploadDate.ptr(), uploadAt.ptr()
	rec.UploadStatus = constants.Status(uploadStatus.String)
	rec.UploadedBy = uploadedBy.String
	rec.ExclusionText = exclusionText.String
	rec.PromptID = int64Ptr(promptID)

	rec.TranslationDate, rec.TranslationDatetime = translationDate.ptr(), translationAt.ptr()
	rec.TranslationStatus = constants.Status(translationStatus.String)
	rec.TranslatedZonePath = strPtr(translatedPath)
	rec.GlossaryZonePath = strPtr(glossaryPath)
	rec.GlossaryProcessingStatus = constants.Status(glossaryStatus.String)
	rec.GlossaryContent = strPtr(content)

	rec.WatermarkDate, rec.WatermarkDatetime = watermarkDate.ptr(), watermarkAt.ptr()
	rec.WatermarkStatus = constants.Status(watermarkStatus.String)
	rec.WatermarkZonePath = strPtr(watermarkPath)
	return rec, nil
}

func setNullable(u *sql.UpdateBuilder, column string, v *string) *sql.UpdateBuilder {
	if v == nil {
		return u.SetNull(column)
	}
	return u.Set(column, *v)
}
