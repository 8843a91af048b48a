package receipt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.New().String()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// Service handles single receipt uploads for the HTTP server
type Service struct {
	db          RecordStore
	extractor   Extractor
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
	logger      *slog.Logger
}

// NewService creates a new Service with default ID generator and time source
func NewService(db RecordStore, extractor Extractor, storage Storage) *Service {
	return NewServiceWithDeps(db, extractor, storage, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db RecordStore, extractor Extractor, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
		logger:      slog.Default(),
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// Truncate to reasonable length (50 chars for base, plus extension)
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ProcessReceipt stores an uploaded receipt, extracts it and saves the record.
// A receipt whose extraction fails is not kept.
func (s *Service) ProcessReceipt(ctx context.Context, filename string, data []byte, contentType string) (*Record, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	in := Input{ID: id, Filename: savedPath, ContentType: contentType}
	out := s.extractor.Extract(ctx, Document{Input: in, Data: data})
	if out.Status == StatusFailed {
		s.logger.Error("Failed to extract receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"attempts", out.Attempts,
			"error", out.Err,
		)
		s.deleteFile(savedPath)
		return nil, fmt.Errorf("extracting receipt: %w", out.Err)
	}

	record := newRecord(in, out, now)
	if err := s.db.SaveRecord(record); err != nil {
		s.deleteFile(savedPath)
		return nil, fmt.Errorf("saving record to database: %w", err)
	}

	return record, nil
}

func (s *Service) deleteFile(path string) {
	if err := s.storage.Delete(path); err != nil {
		s.logger.Warn("Failed to delete file", "filename", path, "error", err)
	}
}

// GetRecord retrieves a record by receipt ID
func (s *Service) GetRecord(id string) (*Record, error) {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}
	return record, nil
}

// ListRecords returns all records
func (s *Service) ListRecords() ([]*Record, error) {
	records, err := s.db.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return records, nil
}

// DeleteRecord removes a record and its file
func (s *Service) DeleteRecord(id string) error {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return fmt.Errorf("getting record for deletion: %w", err)
	}

	// A missing file should not keep the record alive
	s.deleteFile(record.Filename)

	if err := s.db.DeleteRecord(id); err != nil {
		return fmt.Errorf("deleting record from database: %w", err)
	}
	return nil
}

// GetRecordFile retrieves the uploaded file for a record
func (s *Service) GetRecordFile(id string) ([]byte, string, error) {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting record: %w", err)
	}

	data, err := s.storage.Get(record.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting record file: %w", err)
	}

	return data, record.ContentType, nil
}

// ExportCSV writes the rows of every stored record as CSV.
func (s *Service) ExportCSV(w io.Writer) error {
	records, err := s.ListRecords()
	if err != nil {
		return err
	}
	rows := make([]Row, 0)
	for _, r := range records {
		rows = append(rows, r.Rows()...)
	}
	return WriteCSV(w, rows)
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
