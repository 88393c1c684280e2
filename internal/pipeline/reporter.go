package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// LedgerLister reads full ledger rows for report generation.
type LedgerLister interface {
	ListWindow(ctx context.Context, platformID string, start, end time.Time) ([]domain.FeeTransaction, error)
}

// BlobWriter stores generated report objects. PutMultipart is used for the
// combined ledger object, which can grow well past single-request size.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Reporter exports each platform's previous-month fee ledger as a CSV object
// to blob storage. Export only: the ledger itself is append-only and never
// pruned, since every summary must stay recomputable from it.
type Reporter struct {
	platforms PlatformLister
	ledger    LedgerLister
	blobs     BlobWriter
	now       func() time.Time
	logger    *slog.Logger
}

// NewReporter creates a Reporter.
func NewReporter(platforms PlatformLister, ledger LedgerLister, blobs BlobWriter, logger *slog.Logger) *Reporter {
	return &Reporter{
		platforms: platforms,
		ledger:    ledger,
		blobs:     blobs,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "reporter")),
	}
}

// Run exports the previous calendar month for every active platform.
func (r *Reporter) Run(ctx context.Context) error {
	monthStart, _ := domain.MonthWindow(r.now())
	periodStart := monthStart.AddDate(0, -1, 0)
	periodEnd := monthStart

	platforms, err := r.platforms.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("reporter: list platforms: %w", err)
	}

	label := periodStart.Format("2006-01")
	var exported int
	var combined []combinedRow
	for _, p := range platforms {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reporter: cancelled: %w", err)
		}

		rows, err := r.ledger.ListWindow(ctx, p.ID, periodStart, periodEnd)
		if err != nil {
			r.logger.Error("report query failed",
				slog.String("platform_id", p.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if len(rows) == 0 {
			continue
		}

		data, err := feeTxToCSV(rows)
		if err != nil {
			r.logger.Error("report encoding failed",
				slog.String("platform_id", p.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		path := fmt.Sprintf("reports/%s/%s.csv", label, p.ID)
		if err := r.blobs.Put(ctx, path, bytes.NewReader(data), "text/csv"); err != nil {
			r.logger.Error("report upload failed",
				slog.String("platform_id", p.ID),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		exported++

		for _, tx := range rows {
			combined = append(combined, combinedRow{platformID: p.ID, tx: tx})
		}
	}

	if len(combined) > 0 {
		data, err := combinedToCSV(combined)
		if err != nil {
			r.logger.Error("combined report encoding failed",
				slog.String("error", err.Error()),
			)
		} else {
			path := fmt.Sprintf("reports/%s/ledger.csv", label)
			if err := r.blobs.PutMultipart(ctx, path, bytes.NewReader(data), 0); err != nil {
				r.logger.Error("combined report upload failed",
					slog.String("path", path),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	r.logger.Info("monthly report export complete",
		slog.String("month", label),
		slog.Int("platforms_exported", exported),
		slog.Int("ledger_rows", len(combined)),
	)
	return nil
}

type combinedRow struct {
	platformID string
	tx         domain.FeeTransaction
}

// combinedToCSV renders the all-platform ledger with a leading platform_id
// column.
func combinedToCSV(rows []combinedRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"platform_id",
		"trade_id",
		"trade_type",
		"trade_volume",
		"fee_rate",
		"total_fee",
		"platform_share",
		"liquidlab_share",
		"status",
		"created_at",
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for i, row := range rows {
		tx := row.tx
		record := []string{
			row.platformID,
			tx.TradeID,
			string(tx.TradeType),
			tx.TradeVolume.String(),
			tx.FeeRate.String(),
			tx.TotalFee.String(),
			tx.PlatformShare.String(),
			tx.LiquidlabShare.String(),
			string(tx.Status),
			strconv.FormatInt(tx.CreatedAt.Unix(), 10),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// feeTxToCSV renders ledger rows as CSV bytes with a header row.
func feeTxToCSV(rows []domain.FeeTransaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"trade_id",
		"trade_type",
		"trade_volume",
		"fee_rate",
		"total_fee",
		"platform_share",
		"liquidlab_share",
		"status",
		"created_at",
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for i, tx := range rows {
		record := []string{
			tx.TradeID,
			string(tx.TradeType),
			tx.TradeVolume.String(),
			tx.FeeRate.String(),
			tx.TotalFee.String(),
			tx.PlatformShare.String(),
			tx.LiquidlabShare.String(),
			string(tx.Status),
			strconv.FormatInt(tx.CreatedAt.Unix(), 10),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
