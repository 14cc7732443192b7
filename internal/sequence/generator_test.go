package sequence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu        sync.Mutex
	counters  map[string]int64
	templates map[string]*model.NumberingTemplate
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		counters:  map[string]int64{},
		templates: map[string]*model.NumberingTemplate{},
	}
}

func (r *memoryRepo) Next(_ context.Context, tenantID, documentType, periodKey string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tenantID + "|" + documentType + "|" + periodKey
	r.counters[key]++
	return r.counters[key], nil
}

func (r *memoryRepo) GetActiveTemplate(_ context.Context, tenantID, documentType string) (*model.NumberingTemplate, error) {
	tpl, ok := r.templates[tenantID+"|"+documentType]
	if !ok {
		return nil, apperrors.ConfigurationMissing("numbering template for " + documentType)
	}
	return tpl, nil
}

func TestGenerator_NextDocumentNumber(t *testing.T) {
	repo := newMemoryRepo()
	repo.templates["tenant-1|TRF"] = &model.NumberingTemplate{
		Prefix:       "TRF",
		PeriodFormat: "YYMM",
		Padding:      4,
	}
	gen := NewGenerator(repo, nil)

	at := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	first, err := gen.NextDocumentNumber(context.Background(), "tenant-1", "TRF", at)
	require.NoError(t, err)
	assert.Equal(t, "TRF-2608-0001", first)

	second, err := gen.NextDocumentNumber(context.Background(), "tenant-1", "TRF", at)
	require.NoError(t, err)
	assert.Equal(t, "TRF-2608-0002", second)
}

func TestGenerator_PeriodRollover(t *testing.T) {
	repo := newMemoryRepo()
	repo.templates["tenant-1|ORD"] = &model.NumberingTemplate{
		Prefix:       "ORD",
		PeriodFormat: "YYMM",
	}
	gen := NewGenerator(repo, nil)

	aug := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	sep := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	n1, err := gen.NextDocumentNumber(context.Background(), "tenant-1", "ORD", aug)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2608-0001", n1)

	// New period restarts the counter.
	n2, err := gen.NextDocumentNumber(context.Background(), "tenant-1", "ORD", sep)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2609-0001", n2)
}

func TestGenerator_MissingTemplate(t *testing.T) {
	gen := NewGenerator(newMemoryRepo(), nil)

	_, err := gen.NextDocumentNumber(context.Background(), "tenant-1", "CNT", time.Now())
	assert.ErrorIs(t, err, apperrors.ErrConfigurationMissing)
}

func TestGenerator_ConcurrentCallersGetUniqueNumbers(t *testing.T) {
	repo := newMemoryRepo()
	repo.templates["tenant-1|ORD"] = &model.NumberingTemplate{Prefix: "ORD", Padding: 4}
	gen := NewGenerator(repo, nil)

	const callers = 50
	at := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	numbers := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := gen.NextDocumentNumber(context.Background(), "tenant-1", "ORD", at)
			assert.NoError(t, err)
			numbers[i] = n
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, n := range numbers {
		assert.False(t, seen[n], "duplicate document number %s", n)
		seen[n] = true
	}
	assert.Len(t, seen, callers)
}

func TestGenerator_CountersAreTenantScoped(t *testing.T) {
	repo := newMemoryRepo()
	repo.templates["tenant-1|TRF"] = &model.NumberingTemplate{Prefix: "TRF"}
	repo.templates["tenant-2|TRF"] = &model.NumberingTemplate{Prefix: "TRF"}
	gen := NewGenerator(repo, nil)

	at := time.Now()
	n1, err := gen.NextDocumentNumber(context.Background(), "tenant-1", "TRF", at)
	require.NoError(t, err)
	n2, err := gen.NextDocumentNumber(context.Background(), "tenant-2", "TRF", at)
	require.NoError(t, err)

	assert.Equal(t, n1, n2) // each tenant starts at 1
}
