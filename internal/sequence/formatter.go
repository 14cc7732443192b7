package sequence

import (
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/model"
)

// Formatter renders a sequence value into a document number. It is pure and
// stateless; tenants can plug their own.
type Formatter interface {
	Render(tpl *model.NumberingTemplate, value int64, periodKey string) string
}

// PeriodKey encodes t according to the template's period format. An empty
// format yields a single shared period.
func PeriodKey(format string, t time.Time) string {
	switch format {
	case "YYMM":
		return t.Format("0601")
	case "YYYYMM":
		return t.Format("200601")
	case "YYYY":
		return t.Format("2006")
	case "YYYYWW":
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d%02d", year, week)
	default:
		return ""
	}
}

// TemplateFormatter is the default renderer: prefix, period key and a
// zero-padded value joined by the template separator.
type TemplateFormatter struct{}

func (TemplateFormatter) Render(tpl *model.NumberingTemplate, value int64, periodKey string) string {
	parts := []string{}
	if tpl.Prefix != "" {
		parts = append(parts, tpl.Prefix)
	}
	if periodKey != "" {
		parts = append(parts, periodKey)
	}
	padding := tpl.Padding
	if padding <= 0 {
		padding = 4
	}
	parts = append(parts, fmt.Sprintf("%0*d", padding, value))

	sep := tpl.Separator
	if sep == "" {
		sep = "-"
	}
	return strings.Join(parts, sep)
}
