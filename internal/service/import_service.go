package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"portal-server/internal/models"
	"portal-server/internal/repository"
)

// maxImportSize bounds the raw CSV payload (5 MB).
const maxImportSize = 5 * 1024 * 1024

const importBatchSize = 100

// French numbering plan: region per leading 3-digit prefix.
var prefixRegions = map[string]string{
	"331": "Île-de-France",
	"332": "Nord-Ouest",
	"333": "Nord-Est",
	"334": "Sud-Est",
	"335": "Sud-Ouest",
	"336": "Mobile",
	"337": "Mobile",
	"338": "Services",
	"339": "Services",
}

// ImportService loads DID inventory from operator-provided CSV exports.
type ImportService struct {
	numbers repository.NumberRepository
	logger  *zap.Logger
}

// NewImportService creates the CSV import service.
func NewImportService(numbers repository.NumberRepository, logger *zap.Logger) *ImportService {
	return &ImportService{
		numbers: numbers,
		logger:  logger.Named("ImportService"),
	}
}

// ImportCSV parses a semicolon-separated inventory export and upserts
// the numbers in batches, ignoring duplicates. The expected layout has a
// header row and the number in the second column; rows with a number
// shorter than six digits are skipped. The exports are not RFC-4180
// (no quoting), so the rows are split directly.
func (s *ImportService) ImportCSV(ctx context.Context, csvData string) (*models.ImportResult, error) {
	if csvData == "" {
		return nil, fmt.Errorf("%w: empty CSV data", models.ErrInvalidInput)
	}
	if len(csvData) > maxImportSize {
		return nil, fmt.Errorf("%w: CSV data too large (max 5MB)", models.ErrInvalidInput)
	}

	lines := strings.Split(csvData, "\n")
	if len(lines) > 0 {
		lines = lines[1:] // header
	}

	var numbers []*models.AvailableNumber
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, ";")
		if len(parts) < 2 {
			continue
		}
		numero := strings.TrimSpace(parts[1])
		if len(numero) <= 5 {
			continue
		}
		prefix, region := regionForNumero(numero)
		numbers = append(numbers, &models.AvailableNumber{
			Numero: numero,
			Prefix: prefix,
			Region: region,
			Type:   "SDA",
			Status: models.NumberStatusAvailable,
		})
	}

	s.logger.Info("Parsed CSV import", zap.Int("numbers", len(numbers)))

	result := &models.ImportResult{Total: len(numbers)}
	for i := 0; i < len(numbers); i += importBatchSize {
		end := i + importBatchSize
		if end > len(numbers) {
			end = len(numbers)
		}
		batch := numbers[i:end]
		inserted, err := s.numbers.BulkUpsert(ctx, batch)
		if err != nil {
			s.logger.Error("Batch upsert failed", zap.Int("offset", i), zap.Error(err))
			result.Errors += len(batch)
			continue
		}
		result.Inserted += inserted
	}

	s.logger.Info("Import complete",
		zap.Int("total", result.Total),
		zap.Int("inserted", result.Inserted),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

func regionForNumero(numero string) (prefix, region string) {
	if len(numero) < 3 {
		return numero, "France"
	}
	prefix = numero[:3]
	region, ok := prefixRegions[prefix]
	if !ok {
		region = "France"
	}
	return prefix, region
}
