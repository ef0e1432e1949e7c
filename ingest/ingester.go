// Package ingest walks a location, splits files into fragments and writes
// them to a vector store.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"github.com/viant/vecrag/schema"
	"github.com/viant/vecrag/vectordb"
	"github.com/viant/vecrag/vectorstores"
	"go.uber.org/zap"
)

const defaultBatchSize = 64

// Source lists and downloads objects.
type Source interface {
	List(ctx context.Context, location string) ([]storage.Object, error)
	Download(ctx context.Context, object storage.Object) ([]byte, error)
}

type afsSource struct {
	svc afs.Service
}

// NewAFS returns a Source backed by github.com/viant/afs.
func NewAFS() Source {
	return &afsSource{svc: afs.New()}
}

func (a *afsSource) List(ctx context.Context, location string) ([]storage.Object, error) {
	return a.svc.List(ctx, location)
}

func (a *afsSource) Download(ctx context.Context, object storage.Object) ([]byte, error) {
	return a.svc.Download(ctx, object)
}

// Stats summarizes an ingestion run.
type Stats struct {
	Files     int `json:"files"`
	Skipped   int `json:"skipped"`
	Fragments int `json:"fragments"`
}

// Ingester writes file fragments to a vector store.
type Ingester struct {
	writer    vectordb.Writer
	source    Source
	splitter  *SizeSplitter
	matcher   *Matcher
	batchSize int
	logger    *zap.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithSource sets the object source.
func WithSource(source Source) Option {
	return func(i *Ingester) { i.source = source }
}

// WithChunkSize sets the maximum fragment size in bytes.
func WithChunkSize(size int) Option {
	return func(i *Ingester) { i.splitter = NewSizeSplitter(size) }
}

// WithMatcher sets the include/exclude rules.
func WithMatcher(matcher *Matcher) Option {
	return func(i *Ingester) { i.matcher = matcher }
}

// WithBatchSize sets how many fragments are written per AddDocuments call.
func WithBatchSize(size int) Option {
	return func(i *Ingester) {
		if size > 0 {
			i.batchSize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Ingester) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New creates an Ingester writing to writer.
func New(writer vectordb.Writer, opts ...Option) *Ingester {
	i := &Ingester{
		writer:    writer,
		splitter:  NewSizeSplitter(DefaultChunkSize),
		matcher:   NewMatcher(nil, nil, 0),
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.source == nil {
		i.source = NewAFS()
	}
	return i
}

// Ingest walks location and writes every matching text file.
func (i *Ingester) Ingest(ctx context.Context, location string, opts ...vectorstores.Option) (*Stats, error) {
	norm, err := normalize(location)
	if err != nil {
		return nil, err
	}
	stats := &Stats{}
	var pending []schema.Document
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if _, err := i.writer.AddDocuments(ctx, pending, opts...); err != nil {
			return err
		}
		stats.Fragments += len(pending)
		pending = pending[:0]
		return nil
	}
	err = i.walk(ctx, norm, stats, func(docs []schema.Document) error {
		pending = append(pending, docs...)
		if len(pending) >= i.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	i.logger.Info("ingested", zap.String("location", location),
		zap.Int("files", stats.Files), zap.Int("skipped", stats.Skipped), zap.Int("fragments", stats.Fragments))
	return stats, nil
}

func (i *Ingester) walk(ctx context.Context, location string, stats *Stats, emit func([]schema.Document) error) error {
	objects, err := i.source.List(ctx, location)
	if err != nil {
		return err
	}
	self := strings.TrimRight(url.Path(location), "/")
	for _, object := range objects {
		if err := ctx.Err(); err != nil {
			return err
		}
		objectPath := url.Path(object.URL())
		if object.IsDir() && strings.TrimRight(objectPath, "/") == self {
			continue
		}
		if i.matcher.IsExcluded(object.URL(), object.Size(), object.IsDir()) {
			stats.Skipped++
			continue
		}
		if object.IsDir() {
			if err := i.walk(ctx, url.Join(location, object.Name()), stats, emit); err != nil {
				return err
			}
			continue
		}
		docs, err := i.fileDocuments(ctx, object)
		if err != nil {
			return err
		}
		if docs == nil {
			stats.Skipped++
			continue
		}
		stats.Files++
		if err := emit(docs); err != nil {
			return err
		}
	}
	return nil
}

func (i *Ingester) fileDocuments(ctx context.Context, object storage.Object) ([]schema.Document, error) {
	data, err := i.source.Download(ctx, object)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", object.URL(), err)
	}
	if isBinary(data) {
		i.logger.Debug("skipping binary", zap.String("url", object.URL()))
		return nil, nil
	}
	fragments, err := i.splitter.Split(data)
	if err != nil {
		return nil, err
	}
	path := url.Path(object.URL())
	docs := make([]schema.Document, 0, len(fragments))
	for _, fragment := range fragments {
		doc, err := fragment.NewDocument(path, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func normalize(location string) (string, error) {
	if url.Scheme(location, "") != "" {
		return location, nil
	}
	if url.IsRelative(location) {
		abs, err := filepath.Abs(location)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path for %s: %w", location, err)
		}
		location = abs
	}
	return url.ToFileURL(location), nil
}

func isBinary(data []byte) bool {
	head := data
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0
}
