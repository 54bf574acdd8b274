// Package importer loads an order-ledger CSV export (as produced by the admin
// export endpoint) back into a ledger, e.g. when moving from the in-memory
// ledger to Postgres.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront-checkout/internal/domain"
)

// LedgerWriter is the slice of the order repository the importer needs.
type LedgerWriter interface {
	Record(ctx context.Context, o domain.Order) error
}

// Stats summarises one run.
type Stats struct {
	Imported int
	Skipped  int
}

type CSVImporter struct {
	reader *csv.Reader
	ledger LedgerWriter
}

func NewCSVImporter(r io.Reader, ledger LedgerWriter) *CSVImporter {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSVImporter{reader: cr, ledger: ledger}
}

var requiredColumns = []string{"order_id", "user_id", "total_amount", "status"}

// Run imports every data row. Orders already in the ledger are skipped so a
// run can be repeated after a partial failure.
func (i *CSVImporter) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	headers, err := i.reader.Read()
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return stats, fmt.Errorf("missing column %q", col)
		}
	}

	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		o, err := parseRow(record, index)
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		if err := i.ledger.Record(ctx, o); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				stats.Skipped++
				continue
			}
			return stats, fmt.Errorf("line %d: record order %q: %w", line, o.ID, err)
		}
		stats.Imported++
	}

	return stats, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) (domain.Order, error) {
	o := domain.Order{
		ID:            pick(record, index, "order_id"),
		SessionID:     pick(record, index, "session_id"),
		UserID:        pick(record, index, "user_id"),
		PaymentMethod: pick(record, index, "payment_method"),
		Status:        domain.OrderStatus(pick(record, index, "status")),
	}
	if o.ID == "" || o.UserID == "" {
		return o, fmt.Errorf("order_id and user_id are required")
	}
	if !o.Status.Valid() {
		return o, fmt.Errorf("order %q: unknown status %q", o.ID, o.Status)
	}

	total, err := decimal.NewFromString(pick(record, index, "total_amount"))
	if err != nil {
		return o, fmt.Errorf("order %q: total_amount: %w", o.ID, err)
	}
	o.TotalAmount = total

	if raw := pick(record, index, "item_count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return o, fmt.Errorf("order %q: bad item_count %q", o.ID, raw)
		}
		o.ItemCount = n
	}

	if o.CreatedAt, err = parseTime(pick(record, index, "created_at")); err != nil {
		return o, fmt.Errorf("order %q: created_at: %w", o.ID, err)
	}
	if o.UpdatedAt, err = parseTime(pick(record, index, "updated_at")); err != nil {
		return o, fmt.Errorf("order %q: updated_at: %w", o.ID, err)
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	return o, nil
}

// parseTime leaves empty values zero; the ledger stamps them on insert.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
