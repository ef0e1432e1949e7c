package sqlitevec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/viant/sqlite-vec/engine"
	"github.com/viant/sqlite-vec/vec"
	"github.com/viant/sqlite-vec/vector"
	"github.com/viant/vecrag/db/sqliteutil"
	"github.com/viant/vecrag/embeddings"
	"github.com/viant/vecrag/schema"
	"github.com/viant/vecrag/vectordb"
	"github.com/viant/vecrag/vectordb/meta"
	"github.com/viant/vecrag/vectorstores"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const defaultNamespace = "default"

// SCNAllocator returns a new SCN for the given dataset.
// When set, AddDocuments/Remove will stamp scn on written rows.
type SCNAllocator func(ctx context.Context, datasetID string) (int64, error)

// Store is a sqlite-vec backed VectorStore. Candidate scores are match
// scores where higher means more similar.
type Store struct {
	db            *sql.DB
	dsn           string
	vtable        string
	shadow        string
	ensureSchema  bool
	embedBatch    int
	embedModel    string
	embedder      embeddings.Embedder
	scnAllocator  SCNAllocator
	logger        *zap.Logger
	openedLocally bool
}

// Option configures the sqlite-vec store.
type Option func(*Store)

// WithDB sets an existing *sql.DB to use.
func WithDB(db *sql.DB) Option {
	return func(s *Store) { s.db = db }
}

// WithDSN sets the SQLite DSN to open (e.g. /path/to/db.sqlite).
func WithDSN(dsn string) Option {
	return func(s *Store) { s.dsn = dsn }
}

// WithVTable sets the vec virtual table name (default: emb_docs).
func WithVTable(name string) Option {
	return func(s *Store) { s.vtable = name }
}

// WithEnsureSchema controls whether schema and indexes are created automatically.
func WithEnsureSchema(enabled bool) Option {
	return func(s *Store) { s.ensureSchema = enabled }
}

// WithEmbedBatchSize sets the embedding batch size for AddDocuments.
func WithEmbedBatchSize(size int) Option {
	return func(s *Store) { s.embedBatch = size }
}

// WithEmbeddingModel sets the embedding_model stored with rows.
func WithEmbeddingModel(model string) Option {
	return func(s *Store) { s.embedModel = model }
}

// WithEmbedder sets the default embedder for AddDocuments.
func WithEmbedder(e embeddings.Embedder) Option {
	return func(s *Store) { s.embedder = e }
}

// WithSCNAllocator sets the SCN allocator used for writes.
func WithSCNAllocator(fn SCNAllocator) Option {
	return func(s *Store) { s.scnAllocator = fn }
}

// WithLogger sets the logger used for query diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore opens/initializes a sqlite-vec Store.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		vtable:       "emb_docs",
		ensureSchema: true,
		embedBatch:   64,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.vtable == "" {
		s.vtable = "emb_docs"
	}
	s.shadow = "_vec_" + s.vtable

	if s.db == nil {
		if s.dsn == "" {
			return nil, fmt.Errorf("sqlitevec: dsn required")
		}
		db, err := engine.Open(sqliteutil.EnsurePragmas(s.dsn, true, 5000))
		if err != nil {
			return nil, err
		}
		s.db = db
		conns := 4
		if sqliteutil.IsMemory(s.dsn) {
			conns = 1
		}
		s.db.SetMaxOpenConns(conns)
		s.db.SetMaxIdleConns(conns)
		s.openedLocally = true
	}
	if err := vec.Register(s.db); err != nil {
		_ = s.Close()
		return nil, err
	}
	if s.scnAllocator == nil {
		s.scnAllocator = DefaultSCNAllocator(s.db)
	}
	if s.ensureSchema {
		if err := s.EnsureSchema(context.Background()); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close closes the underlying DB if Store opened it.
func (s *Store) Close() error {
	if s.openedLocally && s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Direction reports match-score (similarity) scoring.
func (s *Store) Direction() vectordb.Direction { return vectordb.Similarity }

// AddDocuments embeds and upserts documents into the shadow table.
func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document, opts ...vectorstores.Option) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	options := vectorstores.Apply(opts...)
	emb := options.Embedder
	if emb == nil {
		emb = s.embedder
	}
	if emb == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	dataset := datasetOf(options)
	scn, err := s.scnAllocator(ctx, dataset)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].PageContent
	}
	vecs, err := embeddings.Batch(ctx, emb, texts, s.embedBatch)
	if err != nil {
		return nil, err
	}
	stmt, err := s.db.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s(dataset_id, id, asset_id, content, meta, embedding, embedding_model, scn, archived)
VALUES(?,?,?,?,?,?,?,?,0)
ON CONFLICT(dataset_id, id) DO UPDATE SET
	asset_id=excluded.asset_id,
	content=excluded.content,
	meta=excluded.meta,
	embedding=excluded.embedding,
	embedding_model=excluded.embedding_model,
	scn=excluded.scn,
	archived=0`, s.shadow))
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]string, len(docs))
	for i, doc := range docs {
		id := documentID(doc)
		ids[i] = id
		metaJSON, err := meta.Encode(doc.Metadata)
		if err != nil {
			return nil, err
		}
		assetID := meta.GetString(doc.Metadata, meta.DocumentID)
		if assetID == "" {
			assetID = id
		}
		blob, err := vector.EncodeEmbedding(vecs[i])
		if err != nil {
			return nil, err
		}
		model := s.embedModel
		if v := meta.GetString(doc.Metadata, meta.ModelKey); v != "" {
			model = v
		}
		if _, err := stmt.ExecContext(ctx, dataset, id, assetID, doc.PageContent, metaJSON, blob, model, scn); err != nil {
			return nil, err
		}
	}
	s.logger.Debug("documents added", zap.String("dataset", dataset), zap.Int("count", len(ids)), zap.Int64("scn", scn))
	return ids, nil
}

// Nearest runs a MATCH query and returns up to limit candidates by descending match score.
func (s *Store) Nearest(ctx context.Context, embedding []float32, limit int, opts ...vectorstores.Option) ([]vectordb.Candidate, error) {
	options := vectorstores.Apply(opts...)
	dataset := datasetOf(options)
	blob, err := vector.EncodeEmbedding(embedding)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT d.id, d.content, d.meta, v.match_score
FROM %s v
JOIN %s d ON d.dataset_id = v.dataset_id AND d.id = v.doc_id
WHERE v.dataset_id = ?
  AND v.doc_id MATCH ?
  AND d.archived = 0
ORDER BY v.match_score DESC
LIMIT ?`, s.vtable, s.shadow)
	s.logger.Debug("nearest", zap.String("dataset", dataset), zap.Int("limit", limit))
	rows, err := s.db.QueryContext(ctx, query, dataset, blob, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []vectordb.Candidate
	for rows.Next() {
		doc, err := scanDocument(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, vectordb.Candidate{ID: doc.ID, Score: doc.Score, Document: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ByIDs returns active records with the given ids ordered by id.
func (s *Store) ByIDs(ctx context.Context, ids []string, opts ...vectorstores.Option) ([]schema.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	options := vectorstores.Apply(opts...)
	dataset := datasetOf(options)
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, dataset)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf(`SELECT id, content, meta
FROM %s
WHERE dataset_id = ?
  AND archived = 0
  AND id IN (%s)
ORDER BY id`, s.shadow, placeholders)
	s.logger.Debug("by ids", zap.String("dataset", dataset), zap.Strings("ids", ids))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.Document
	for rows.Next() {
		doc, err := scanDocument(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Remove soft-deletes a document by id.
func (s *Store) Remove(ctx context.Context, id string, opts ...vectorstores.Option) error {
	options := vectorstores.Apply(opts...)
	dataset := datasetOf(options)
	scn, err := s.scnAllocator(ctx, dataset)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET archived=1, scn=? WHERE dataset_id=? AND id=?`, s.shadow), scn, dataset, id)
	return err
}

// EnsureSchema creates the shadow table, vec virtual table and indexes.
// For file databases the virtual table is bound to its own file with the vec
// dbpath argument; the vec module is registered once per process against the
// first handle, so without it every store would search the first database.
func (s *Store) EnsureSchema(ctx context.Context) error {
	vtableArgs, err := s.vtableArgs(ctx)
	if err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vec_dataset (
			dataset_id   TEXT PRIMARY KEY,
			description  TEXT,
			source_uri   TEXT,
			last_scn     INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS vec_dataset_scn (
			dataset_id TEXT PRIMARY KEY,
			next_scn   INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS vector_storage (
			shadow_table_name TEXT NOT NULL,
			dataset_id        TEXT NOT NULL DEFAULT '',
			"index"           BLOB,
			PRIMARY KEY (shadow_table_name, dataset_id)
		);`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			dataset_id       TEXT NOT NULL,
			id               TEXT NOT NULL,
			asset_id         TEXT NOT NULL,
			content          TEXT,
			meta             TEXT,
			embedding        BLOB,
			embedding_model  TEXT,
			scn              INTEGER NOT NULL,
			archived         INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (dataset_id, id)
		);`, s.shadow),
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec(%s);`, s.vtable, vtableArgs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_asset ON %s(dataset_id, asset_id);`, s.vtable, s.shadow),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_scn ON %s(dataset_id, scn);`, s.vtable, s.shadow),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_archived ON %s(dataset_id, archived);`, s.vtable, s.shadow),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// vtableArgs returns the vec module arguments for the virtual table.
func (s *Store) vtableArgs(ctx context.Context) (string, error) {
	path, err := sqliteutil.MainFile(ctx, s.db)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "doc_id", nil
	}
	if strings.Contains(path, "'") {
		return "", fmt.Errorf("sqlitevec: unsupported database path %q", path)
	}
	return "doc_id, dbpath='" + path + "'", nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row scanner, withScore bool) (*schema.Document, error) {
	var id, content string
	var metaJSON sql.NullString
	var score float64
	dest := []interface{}{&id, &content, &metaJSON}
	if withScore {
		dest = append(dest, &score)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	metaMap, err := meta.Decode(metaJSON.String)
	if err != nil {
		return nil, err
	}
	if _, ok := metaMap[meta.FragmentID]; !ok {
		metaMap[meta.FragmentID] = id
	}
	return &schema.Document{ID: id, PageContent: content, Metadata: metaMap, Score: score}, nil
}

func datasetOf(options vectorstores.Options) string {
	if options.NameSpace == "" {
		return defaultNamespace
	}
	return options.NameSpace
}

func documentID(doc schema.Document) string {
	if doc.ID != "" {
		return doc.ID
	}
	if v := meta.GetString(doc.Metadata, meta.FragmentID); v != "" {
		return v
	}
	start, end := fragmentBounds(doc.Metadata)
	if v := meta.GetString(doc.Metadata, meta.DocumentID); v != "" {
		return fmt.Sprintf("%s:%d-%d", v, start, end)
	}
	return fmt.Sprintf("doc:%d-%d", start, end)
}

func fragmentBounds(metaIn map[string]interface{}) (int, int) {
	start := toInt(metaIn[meta.StartKey])
	end := toInt(metaIn[meta.EndKey])
	if end < start {
		end = start
	}
	return start, end
}

func toInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case float32:
		return int(t)
	default:
		return 0
	}
}

// DefaultSCNAllocator returns a simple allocator over vec_dataset_scn in the local DB.
func DefaultSCNAllocator(db *sql.DB) SCNAllocator {
	return func(ctx context.Context, datasetID string) (int64, error) {
		if datasetID == "" {
			return 0, fmt.Errorf("dataset_id is required")
		}
		if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO vec_dataset_scn(dataset_id, next_scn) VALUES(?, 0)`, datasetID); err != nil {
			return 0, err
		}
		if _, err := db.ExecContext(ctx, `UPDATE vec_dataset_scn SET next_scn = next_scn + 1 WHERE dataset_id = ?`, datasetID); err != nil {
			return 0, err
		}
		var scn int64
		if err := db.QueryRowContext(ctx, `SELECT next_scn FROM vec_dataset_scn WHERE dataset_id = ?`, datasetID).Scan(&scn); err != nil {
			return 0, err
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO vec_dataset(dataset_id, last_scn) VALUES(?, ?)
ON CONFLICT(dataset_id) DO UPDATE SET last_scn = excluded.last_scn`, datasetID, scn); err != nil {
			return 0, err
		}
		return scn, nil
	}
}
