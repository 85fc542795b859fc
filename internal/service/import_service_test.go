package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portal-server/internal/models"
)

func TestImportCSVParsesOperatorExport(t *testing.T) {
	repo := newFakeNumberRepo()
	svc := NewImportService(repo, zap.NewNop())

	csv := strings.Join([]string{
		"ref;numero;type",
		"1;33123456789;SDA",
		"2;33498765432;SDA",
		"3;336;SDA",   // too short, skipped
		"4;;SDA",      // empty numero, skipped
		"",            // blank line, skipped
		"5;33612345678;SDA",
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), csv)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 0, result.Errors)

	idf, err := repo.GetByNumero(context.Background(), "33123456789")
	require.NoError(t, err)
	assert.Equal(t, "331", idf.Prefix)
	assert.Equal(t, "Île-de-France", idf.Region)
	assert.Equal(t, "SDA", idf.Type)
	assert.Equal(t, models.NumberStatusAvailable, idf.Status)

	se, err := repo.GetByNumero(context.Background(), "33498765432")
	require.NoError(t, err)
	assert.Equal(t, "Sud-Est", se.Region)

	mobile, err := repo.GetByNumero(context.Background(), "33612345678")
	require.NoError(t, err)
	assert.Equal(t, "Mobile", mobile.Region)
}

func TestImportCSVSkipsHeaderRow(t *testing.T) {
	repo := newFakeNumberRepo()
	svc := NewImportService(repo, zap.NewNop())

	// The header looks like a record; it must still be dropped.
	result, err := svc.ImportCSV(context.Background(), "ref;numero\n1;33123456789")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
}

func TestImportCSVIgnoresDuplicates(t *testing.T) {
	repo := newFakeNumberRepo()
	svc := NewImportService(repo, zap.NewNop())

	_, err := svc.ImportCSV(context.Background(), "ref;numero\n1;33123456789")
	require.NoError(t, err)

	result, err := svc.ImportCSV(context.Background(), "ref;numero\n1;33123456789\n2;33123456790")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Inserted)
}

func TestImportCSVRejectsEmptyAndOversizedInput(t *testing.T) {
	svc := NewImportService(newFakeNumberRepo(), zap.NewNop())

	_, err := svc.ImportCSV(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.ImportCSV(context.Background(), strings.Repeat("x", maxImportSize+1))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestImportCSVBatchesUpserts(t *testing.T) {
	repo := newFakeNumberRepo()
	svc := NewImportService(repo, zap.NewNop())

	var b strings.Builder
	b.WriteString("ref;numero\n")
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&b, "%d;3312345%05d\n", i, i)
	}

	result, err := svc.ImportCSV(context.Background(), b.String())
	require.NoError(t, err)
	assert.Equal(t, 250, result.Total)
	assert.Equal(t, 250, result.Inserted)
	assert.Equal(t, 3, repo.upserts, "250 rows should be written in 3 batches of up to 100")
}

func TestRegionForNumero(t *testing.T) {
	tests := []struct {
		numero string
		prefix string
		region string
	}{
		{"33123456789", "331", "Île-de-France"},
		{"33223456789", "332", "Nord-Ouest"},
		{"33323456789", "333", "Nord-Est"},
		{"33423456789", "334", "Sud-Est"},
		{"33523456789", "335", "Sud-Ouest"},
		{"33623456789", "336", "Mobile"},
		{"33723456789", "337", "Mobile"},
		{"33823456789", "338", "Services"},
		{"33923456789", "339", "Services"},
		{"44123456789", "441", "France"},
	}
	for _, tt := range tests {
		prefix, region := regionForNumero(tt.numero)
		assert.Equal(t, tt.prefix, prefix, tt.numero)
		assert.Equal(t, tt.region, region, tt.numero)
	}
}
