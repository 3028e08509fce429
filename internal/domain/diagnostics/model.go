// Package diagnostics holds uploaded diagnostic documents: lab reports and
// imaging studies. The record keeps the blob key of the document in File.
package diagnostics

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clim-up/wikaya/internal/domain/record"
	"github.com/clim-up/wikaya/internal/platform/apperr"
)

type LabReport struct {
	record.Base
	File       string      `json:"file"`
	ReportDate pgtype.Date `json:"report_date"`
	Notes      *string     `json:"notes"`
}

type Imaging struct {
	record.Base
	File        string      `json:"file"`
	ImagingDate pgtype.Date `json:"imaging_date"`
	ImagingType *string     `json:"imaging_type"`
	Notes       *string     `json:"notes"`
}

var LabReportTable = record.Table[LabReport]{
	Name:    "lab_reports",
	Columns: []string{"file", "report_date", "notes"},
	Fields:  func(r *LabReport) []any { return []any{&r.File, &r.ReportDate, &r.Notes} },
	Base:    func(r *LabReport) *record.Base { return &r.Base },
}

var ImagingTable = record.Table[Imaging]{
	Name:    "imaging",
	Columns: []string{"file", "imaging_date", "imaging_type", "notes"},
	Fields:  func(i *Imaging) []any { return []any{&i.File, &i.ImagingDate, &i.ImagingType, &i.Notes} },
	Base:    func(i *Imaging) *record.Base { return &i.Base },
}

func ValidateLabReport(_ context.Context, r *LabReport) error {
	fe := apperr.FieldErrors{}
	if r.File == "" {
		fe.Add("file", msgNoFile)
	}
	if !r.ReportDate.Valid {
		fe.Add("report_date", record.MsgRequired)
	}
	return fe.Err()
}

func ValidateImaging(_ context.Context, i *Imaging) error {
	fe := apperr.FieldErrors{}
	if i.File == "" {
		fe.Add("file", msgNoFile)
	}
	if !i.ImagingDate.Valid {
		fe.Add("imaging_date", record.MsgRequired)
	}
	record.MaxLenPtr(fe, "imaging_type", i.ImagingType, 50)
	return fe.Err()
}

// kind describes one document type: where it is routed, where its blobs
// live and what uploads it accepts.
type kind[T any] struct {
	path       string
	prefix     string
	extensions []string
	formFields []string
	table      record.Table[T]
	file       func(*T) *string
	validate   record.Validator[T]
}

var labReports = kind[LabReport]{
	path:       "/lab-reports",
	prefix:     "lab_reports",
	extensions: []string{"pdf", "jpg", "jpeg", "png"},
	formFields: []string{"report_date", "notes"},
	table:      LabReportTable,
	file:       func(r *LabReport) *string { return &r.File },
	validate:   ValidateLabReport,
}

var imagingStudies = kind[Imaging]{
	path:       "/imaging",
	prefix:     "imaging",
	extensions: []string{"dicom", "pdf", "jpg", "jpeg", "png"},
	formFields: []string{"imaging_date", "imaging_type", "notes"},
	table:      ImagingTable,
	file:       func(i *Imaging) *string { return &i.File },
	validate:   ValidateImaging,
}
