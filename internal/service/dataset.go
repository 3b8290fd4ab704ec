package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"optiplus/internal/csvparse"
	"optiplus/internal/model"
	"optiplus/internal/store"
)

var (
	ErrFileRequired = errors.New("No file provided")
	ErrIDRequired   = errors.New("Dataset ID is required")
	ErrNotFound     = errors.New("Dataset not found")
)

// listFailureMessage is reported on list entries whose file could not be read.
const listFailureMessage = "Failed to process file"

const (
	defaultPreviewRows     = 3
	defaultListConcurrency = 8
)

var tracer = otel.Tracer("optiplus/internal/service")

// DatasetResult is a dataset with its parsed rows.
type DatasetResult struct {
	Dataset model.Dataset `json:"dataset"`
	Rows    []model.Row   `json:"data"`
}

// ExportResult is the raw content of a stored dataset.
type ExportResult struct {
	Filename string
	Content  []byte
}

// DatasetStore is the persistence the catalog needs; *store.Store implements it.
type DatasetStore interface {
	Put(ctx context.Context, originalName string, data []byte) (*model.DatasetRecord, error)
	List(ctx context.Context) ([]model.DatasetRecord, error)
	Lookup(ctx context.Context, id string) (*model.DatasetRecord, error)
	Get(ctx context.Context, id string) ([]byte, *model.DatasetRecord, error)
	Delete(ctx context.Context, id string) error
}

// DatasetService defines the catalog use cases.
type DatasetService interface {
	// Create parses the upload and, only if it is valid CSV, stores it under a new ID.
	Create(ctx context.Context, filename string, r io.Reader) (*DatasetResult, error)

	// List summarizes every stored dataset. A file that fails to read or parse becomes an entry
	// with Error set instead of failing the listing.
	List(ctx context.Context) ([]model.Dataset, error)

	// Get returns a dataset and all of its rows.
	Get(ctx context.Context, id string) (*DatasetResult, error)

	// Delete removes a dataset. Deleting twice yields ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Export returns the stored file unchanged.
	Export(ctx context.Context, id string) (*ExportResult, error)
}

// Config tunes the catalog.
type Config struct {
	PreviewRows     int
	ListConcurrency int
	Logger          zerolog.Logger
}

type datasetService struct {
	store       DatasetStore
	cache       *DatasetCache
	previewRows int
	concurrency int
	log         zerolog.Logger
}

// NewDatasetService constructs a new DatasetService. cache may be nil.
func NewDatasetService(st DatasetStore, cache *DatasetCache, cfg Config) DatasetService {
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = defaultPreviewRows
	}
	if cfg.ListConcurrency <= 0 {
		cfg.ListConcurrency = defaultListConcurrency
	}
	return &datasetService{
		store:       st,
		cache:       cache,
		previewRows: cfg.PreviewRows,
		concurrency: cfg.ListConcurrency,
		log:         cfg.Logger.With().Str("component", "dataset_service").Logger(),
	}
}

func (s *datasetService) Create(ctx context.Context, filename string, r io.Reader) (res *DatasetResult, err error) {
	ctx, span := tracer.Start(ctx, "DatasetService.Create", trace.WithAttributes(attribute.String("dataset.filename", filename)))
	defer func() { endSpan(span, err) }()

	if r == nil || strings.TrimSpace(filename) == "" {
		return nil, ErrFileRequired
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	parsed, err := csvparse.Parse(data)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Put(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	s.cache.Add(rec.ID, parsed)
	span.SetAttributes(attribute.String("dataset.id", rec.ID), attribute.Int("dataset.rows", parsed.RowCount))

	s.log.Info().
		Str("dataset_id", rec.ID).
		Str("filename", filename).
		Int("rows", parsed.RowCount).
		Int64("bytes", rec.Size).
		Msg("dataset uploaded")

	return &DatasetResult{
		Dataset: model.NewDataset(*rec, parsed.Headers, parsed.RowCount),
		Rows:    parsed.Rows,
	}, nil
}

func (s *datasetService) List(ctx context.Context) (out []model.Dataset, err error) {
	ctx, span := tracer.Start(ctx, "DatasetService.List")
	defer func() { endSpan(span, err) }()

	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out = make([]model.Dataset, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.summarize(gctx, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("dataset.count", len(out)))
	return out, nil
}

// summarize builds the list entry for one record, isolating its failures.
func (s *datasetService) summarize(ctx context.Context, rec model.DatasetRecord) model.Dataset {
	if cached, ok := s.cache.Get(rec.ID); ok {
		ds := model.NewDataset(rec, cached.Headers, cached.RowCount)
		ds.PreviewData = firstRows(cached.Rows, s.previewRows)
		return ds
	}

	data, _, err := s.store.Get(ctx, rec.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("dataset_id", rec.ID).Msg("list: read failed")
		ds := model.NewDataset(rec, nil, 0)
		ds.Error = listFailureMessage
		return ds
	}

	parsed, err := csvparse.ParseWithOptions(data, csvparse.Options{Preview: s.previewRows})
	if err != nil {
		s.log.Warn().Err(err).Str("dataset_id", rec.ID).Msg("list: parse failed")
		ds := model.NewDataset(rec, nil, 0)
		ds.Error = err.Error()
		return ds
	}

	ds := model.NewDataset(rec, parsed.Headers, parsed.RowCount)
	ds.PreviewData = firstRows(parsed.Rows, s.previewRows)
	return ds
}

func (s *datasetService) Get(ctx context.Context, id string) (res *DatasetResult, err error) {
	ctx, span := tracer.Start(ctx, "DatasetService.Get", trace.WithAttributes(attribute.String("dataset.id", id)))
	defer func() { endSpan(span, err) }()

	id, err = normalizeID(id)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(id); ok {
		rec, err := s.store.Lookup(ctx, id)
		if err != nil {
			s.cache.Remove(id)
			return nil, mapStoreError(err)
		}
		return &DatasetResult{
			Dataset: model.NewDataset(*rec, cached.Headers, cached.RowCount),
			Rows:    cached.Rows,
		}, nil
	}

	data, rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	parsed, err := csvparse.Parse(data)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, parsed)

	return &DatasetResult{
		Dataset: model.NewDataset(*rec, parsed.Headers, parsed.RowCount),
		Rows:    parsed.Rows,
	}, nil
}

func (s *datasetService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "DatasetService.Delete", trace.WithAttributes(attribute.String("dataset.id", id)))
	defer func() { endSpan(span, err) }()

	id, err = normalizeID(id)
	if err != nil {
		return err
	}
	s.cache.Remove(id)
	if err := s.store.Delete(ctx, id); err != nil {
		return mapStoreError(err)
	}
	s.log.Info().Str("dataset_id", id).Msg("dataset deleted")
	return nil
}

func (s *datasetService) Export(ctx context.Context, id string) (res *ExportResult, err error) {
	ctx, span := tracer.Start(ctx, "DatasetService.Export", trace.WithAttributes(attribute.String("dataset.id", id)))
	defer func() { endSpan(span, err) }()

	id, err = normalizeID(id)
	if err != nil {
		return nil, err
	}
	data, rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return &ExportResult{Filename: rec.Filename, Content: data}, nil
}

// normalizeID rejects blank IDs and maps anything that is not a UUID to ErrNotFound,
// since no stored dataset can carry such an ID.
func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrIDRequired
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrNotFound
	}
	return parsed.String(), nil
}

func mapStoreError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func firstRows(rows []model.Row, n int) []model.Row {
	if len(rows) > n {
		rows = rows[:n]
	}
	out := make([]model.Row, len(rows))
	copy(out, rows)
	return out
}

// endSpan records err on span unless it is an expected client-side outcome.
func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrIDRequired) && !errors.Is(err, ErrFileRequired) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
