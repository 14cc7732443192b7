package sequence

import (
	"context"
	"time"
)

// Generator issues rendered document numbers. NextDocumentNumber is meant to
// run inside the caller's ledger transaction so a rolled-back approval leaves
// at most a gap in the sequence, never a duplicate.
type Generator struct {
	repo      Repository
	formatter Formatter
}

func NewGenerator(repo Repository, formatter Formatter) *Generator {
	if formatter == nil {
		formatter = TemplateFormatter{}
	}
	return &Generator{repo: repo, formatter: formatter}
}

func (g *Generator) NextDocumentNumber(ctx context.Context, tenantID, documentType string, at time.Time) (string, error) {
	tpl, err := g.repo.GetActiveTemplate(ctx, tenantID, documentType)
	if err != nil {
		return "", err
	}

	periodKey := PeriodKey(tpl.PeriodFormat, at)
	value, err := g.repo.Next(ctx, tenantID, documentType, periodKey)
	if err != nil {
		return "", err
	}

	return g.formatter.Render(tpl, value, periodKey), nil
}
