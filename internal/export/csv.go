package export

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/stockroom/internal/model"
)

var csvHeader = []string{
	"ID", "Name (Arabic)", "Name (English)", "Category", "Quantity",
	"Price", "Supplier", "Min Stock", "Created At",
}

// isoMillis is the UTC millisecond timestamp used in CSV cells.
const isoMillis = "2006-01-02T15:04:05.000Z"

// EncodeCSV writes one row per product under a header row. Every field is
// quoted, rows are separated by "\n" and there is no trailing newline.
func EncodeCSV(w io.Writer, products []model.Product) error {
	var b strings.Builder
	writeCSVRow(&b, csvHeader)
	for _, p := range products {
		b.WriteByte('\n')
		writeCSVRow(&b, productRow(p))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func productRow(p model.Product) []string {
	minStock := ""
	if p.MinStock != nil && *p.MinStock != 0 {
		minStock = strconv.Itoa(*p.MinStock)
	}
	return []string{
		p.ID,
		p.NameAr,
		p.NameEn,
		p.Category,
		strconv.Itoa(p.Quantity),
		p.UnitPrice().String(),
		p.Supplier,
		minStock,
		p.CreatedAt.UTC().Format(isoMillis),
	}
}

func writeCSVRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
}

// Format names an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// DefaultFileName returns the suggested download name for an export made
// at now, dated in UTC.
func DefaultFileName(f Format, now time.Time) string {
	day := now.UTC().Format("2006-01-02")
	if f == FormatCSV {
		return "inventory-" + day + ".csv"
	}
	return "inventory-data-" + day + ".json"
}
