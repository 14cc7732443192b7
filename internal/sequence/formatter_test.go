package sequence

import (
	"testing"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestPeriodKey(t *testing.T) {
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		format string
		want   string
	}{
		{"YYMM", "2608"},
		{"YYYYMM", "202608"},
		{"YYYY", "2026"},
		{"YYYYWW", "202635"},
		{"", ""},
		{"bogus", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PeriodKey(tt.format, at), "format %q", tt.format)
	}
}

func TestTemplateFormatter_Render(t *testing.T) {
	f := TemplateFormatter{}

	tpl := &model.NumberingTemplate{Prefix: "TRF", Padding: 5, Separator: "-"}
	assert.Equal(t, "TRF-2608-00042", f.Render(tpl, 42, "2608"))
}

func TestTemplateFormatter_Defaults(t *testing.T) {
	f := TemplateFormatter{}

	// Zero padding falls back to 4, empty separator to "-".
	tpl := &model.NumberingTemplate{Prefix: "ADJ"}
	assert.Equal(t, "ADJ-0007", f.Render(tpl, 7, ""))

	// No prefix, no period: just the padded value.
	assert.Equal(t, "0019", f.Render(&model.NumberingTemplate{}, 19, ""))
}

func TestTemplateFormatter_CustomSeparator(t *testing.T) {
	f := TemplateFormatter{}
	tpl := &model.NumberingTemplate{Prefix: "ORD", PeriodFormat: "YYMM", Padding: 4, Separator: "/"}
	assert.Equal(t, "ORD/2608/0001", f.Render(tpl, 1, "2608"))
}
