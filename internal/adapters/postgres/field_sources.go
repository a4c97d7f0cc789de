package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/settleline/conveyor/internal/domain"
)

// ExtractionSource is the ports.DataSource over the document-extraction
// pipeline's output for one job. A field with no row comes back as an item
// with no value; the source itself never reports absence as an error.
type ExtractionSource struct {
	db    *gorm.DB
	jobID string
}

func NewExtractionSource(db *gorm.DB, jobID string) *ExtractionSource {
	return &ExtractionSource{db: db, jobID: jobID}
}

func (s *ExtractionSource) Get(ctx context.Context, name string) (domain.DataItem, error) {
	var rec extractedFieldModel
	err := s.db.WithContext(ctx).
		Where("job_id = ? AND field_name = ?", s.jobID, name).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DataItem{Name: name}, nil
		}
		return domain.DataItem{}, err
	}
	return domain.DataItem{
		Name:  rec.FieldName,
		Value: rec.Value,
		Type:  domain.DataType(rec.FieldType),
	}, nil
}

// CorrectionSource is the ports.DataSource over human corrections for one
// job. A stored row always carries a value; an empty string is the explicit
// "clear this field" correction.
type CorrectionSource struct {
	db    *gorm.DB
	jobID string
}

func NewCorrectionSource(db *gorm.DB, jobID string) *CorrectionSource {
	return &CorrectionSource{db: db, jobID: jobID}
}

func (s *CorrectionSource) Get(ctx context.Context, name string) (domain.DataItem, error) {
	var rec correctedFieldModel
	err := s.db.WithContext(ctx).
		Where("job_id = ? AND field_name = ?", s.jobID, name).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DataItem{Name: name}, nil
		}
		return domain.DataItem{}, err
	}
	value := rec.Value
	return domain.DataItem{
		Name:  rec.FieldName,
		Value: &value,
		Type:  domain.DataType(rec.FieldType),
	}, nil
}
