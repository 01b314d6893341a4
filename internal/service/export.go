package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"oticagest/backend/internal/domain"
	"oticagest/backend/internal/report"
)

// FetchError means the sales query failed before anything was rendered.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching sales for report: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RenderError means the PDF could not be produced from the fetched rows.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering report: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// PersistError means the PDF was rendered but the report record was not
// saved. The document is still usable, so callers treat this as a warning.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("saving report record: %v", e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// ExportResult carries the rendered document plus the saved report record.
// SaveErr is a *PersistError when the record insert failed; the document is
// valid either way.
type ExportResult struct {
	Document *report.Document
	Report   *domain.Report
	SaveErr  error
}

// ExportSalesReport runs the export pipeline: resolve the period, query the
// sales, render the PDF and record the export. A persistence failure does not
// discard the rendered document.
func (s *Service) ExportSalesReport(ctx context.Context, sel report.Selection, opts report.FormatOptions) (*ExportResult, error) {
	now := time.Now().UTC()

	period, err := report.ResolvePeriod(sel, now)
	if err != nil {
		return nil, err
	}

	opts = s.applyReportDefaults(opts)

	records, err := s.repo.ListSaleRecords(ctx, period.From, period.To.Add(24*time.Hour-time.Nanosecond))
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	doc, err := report.Render(records, period, opts, now)
	if err != nil {
		var verr report.ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, &RenderError{Err: err}
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	result := &ExportResult{Document: doc}

	saved, err := s.repo.InsertReport(ctx, domain.Report{
		Title:           opts.Title,
		CreatedBy:       actor.Username,
		StartDate:       period.From,
		EndDate:         period.To,
		TotalSales:      doc.TotalSales,
		TotalValueCents: doc.TotalValueCents,
		FilePath:        doc.FileName,
	})
	if err != nil {
		log.Printf("[service] WARN: report rendered but record not saved: %v", err)
		result.SaveErr = &PersistError{Err: err}
		return result, nil
	}
	result.Report = saved

	s.logAudit(ctx, "report_export", "report", saved.ID, fmt.Sprintf("period=%s..%s,sales=%d,value=%d",
		period.From.Format("2006-01-02"), period.To.Format("2006-01-02"), doc.TotalSales, doc.TotalValueCents))

	return result, nil
}

func (s *Service) applyReportDefaults(opts report.FormatOptions) report.FormatOptions {
	base := report.DefaultOptions()
	if s.reportDefaults.Title != "" {
		base.Title = s.reportDefaults.Title
	}
	if s.reportDefaults.Header != "" {
		base.HeaderText = s.reportDefaults.Header
	}
	if s.reportDefaults.Footer != "" {
		base.FooterText = s.reportDefaults.Footer
	}

	if strings.TrimSpace(opts.Title) == "" {
		opts.Title = base.Title
	}
	if strings.TrimSpace(opts.HeaderText) == "" {
		opts.HeaderText = base.HeaderText
	}
	if strings.TrimSpace(opts.FooterText) == "" {
		opts.FooterText = base.FooterText
	}
	if opts.PaperSize == "" {
		opts.PaperSize = base.PaperSize
	}
	if opts.Orientation == "" {
		opts.Orientation = base.Orientation
	}
	if len(opts.Columns) == 0 {
		opts.Columns = base.Columns
	}
	return opts
}
