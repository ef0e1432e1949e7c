package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/viant/vecrag/embeddings"
	"github.com/viant/vecrag/schema"
	"github.com/viant/vecrag/vectordb"
	"github.com/viant/vecrag/vectordb/meta"
	"github.com/viant/vecrag/vectorstores"
	"go.uber.org/zap"
)

const (
	defaultTable     = "vecrag_documents"
	defaultNamespace = "default"
)

// Operator is a pgvector distance operator.
type Operator string

const (
	Cosine       Operator = "<=>"
	Euclidean    Operator = "<->"
	InnerProduct Operator = "<#>"
)

// ParseOperator maps a distance name to its operator.
func ParseOperator(name string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cosine":
		return Cosine, nil
	case "euclidean", "l2":
		return Euclidean, nil
	case "inner_product", "ip":
		return InnerProduct, nil
	}
	return "", fmt.Errorf("pgvector: unsupported distance %q", name)
}

func (o Operator) opsClass() string {
	switch o {
	case Euclidean:
		return "vector_l2_ops"
	case InnerProduct:
		return "vector_ip_ops"
	}
	return "vector_cosine_ops"
}

// Store is a PostgreSQL pgvector backed VectorStore. Candidate scores are
// operator distances where lower means more similar.
type Store struct {
	db            *sql.DB
	table         string
	operator      Operator
	dimension     int
	embedder      embeddings.Embedder
	logger        *zap.Logger
	openedLocally bool
}

// Option configures the pgvector store.
type Option func(*Store)

// WithTable sets the documents table name.
func WithTable(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.table = name
		}
	}
}

// WithOperator sets the distance operator (default cosine).
func WithOperator(op Operator) Option {
	return func(s *Store) {
		if op != "" {
			s.operator = op
		}
	}
}

// WithDimension sets the embedding dimension used by EnsureSchema.
func WithDimension(dim int) Option {
	return func(s *Store) { s.dimension = dim }
}

// WithEmbedder sets the default embedder for AddDocuments.
func WithEmbedder(e embeddings.Embedder) Option {
	return func(s *Store) { s.embedder = e }
}

// WithLogger sets the logger used for query diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore wraps an existing database handle.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		table:    defaultTable,
		operator: Cosine,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to PostgreSQL with dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pgvector: dsn required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := NewStore(db, opts...)
	s.openedLocally = true
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

// Direction reports distance scoring.
func (s *Store) Direction() vectordb.Direction { return vectordb.Distance }

// EnsureSchema creates the vector extension, documents table and ANN index.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.dimension <= 0 {
		return fmt.Errorf("pgvector: dimension required")
	}
	table := pq.QuoteIdentifier(s.table)
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id        BIGSERIAL PRIMARY KEY,
	namespace TEXT NOT NULL DEFAULT '%s',
	content   TEXT,
	meta      JSONB,
	embedding vector(%d)
)`, table, defaultNamespace, s.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding %s)`,
			pq.QuoteIdentifier(s.table+"_embedding_idx"), table, s.operator.opsClass()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (namespace)`,
			pq.QuoteIdentifier(s.table+"_namespace_idx"), table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// DropSchema removes the documents table.
func (s *Store) DropSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, pq.QuoteIdentifier(s.table)))
	return err
}

// AddDocuments embeds and stores docs. Documents with a numeric ID are upserted;
// others receive a generated id.
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
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].PageContent
	}
	vecs, err := embeddings.Batch(ctx, emb, texts, 0)
	if err != nil {
		return nil, err
	}
	table := pq.QuoteIdentifier(s.table)
	namespace := namespaceOf(options)
	ids := make([]string, len(docs))
	for i, doc := range docs {
		metaJSON, err := meta.Encode(doc.Metadata)
		if err != nil {
			return nil, err
		}
		var id int64
		if doc.ID != "" {
			if id, err = strconv.ParseInt(doc.ID, 10, 64); err != nil {
				return nil, fmt.Errorf("pgvector: invalid document id %q: %w", doc.ID, err)
			}
			_, err = s.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (id, namespace, content, meta, embedding) VALUES ($1, $2, $3, $4, $5::vector)
ON CONFLICT (id) DO UPDATE SET namespace = EXCLUDED.namespace, content = EXCLUDED.content, meta = EXCLUDED.meta, embedding = EXCLUDED.embedding`, table),
				id, namespace, doc.PageContent, metaJSON, Literal(vecs[i]))
		} else {
			err = s.db.QueryRowContext(ctx, fmt.Sprintf(`INSERT INTO %s (namespace, content, meta, embedding) VALUES ($1, $2, $3, $4::vector) RETURNING id`, table),
				namespace, doc.PageContent, metaJSON, Literal(vecs[i])).Scan(&id)
		}
		if err != nil {
			return nil, err
		}
		ids[i] = strconv.FormatInt(id, 10)
	}
	s.logger.Debug("documents added", zap.String("table", s.table), zap.String("namespace", namespace), zap.Int("count", len(ids)))
	return ids, nil
}

// Nearest returns up to limit candidates ordered by ascending distance.
func (s *Store) Nearest(ctx context.Context, embedding []float32, limit int, opts ...vectorstores.Option) ([]vectordb.Candidate, error) {
	options := vectorstores.Apply(opts...)
	query := fmt.Sprintf(`SELECT id, content, meta, embedding %s $1::vector AS distance FROM %s WHERE namespace = $2 ORDER BY distance LIMIT $3`,
		s.operator, pq.QuoteIdentifier(s.table))
	s.logger.Debug("nearest", zap.String("table", s.table), zap.Int("limit", limit))
	rows, err := s.db.QueryContext(ctx, query, Literal(embedding), namespaceOf(options), limit)
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

// ByIDs returns records with the given ids ordered by primary key.
func (s *Store) ByIDs(ctx context.Context, ids []string, opts ...vectorstores.Option) ([]schema.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	options := vectorstores.Apply(opts...)
	query := fmt.Sprintf(`SELECT id, content, meta FROM %s WHERE namespace = $1 AND id = ANY($2::bigint[]) ORDER BY id`, pq.QuoteIdentifier(s.table))
	s.logger.Debug("by ids", zap.String("table", s.table), zap.Strings("ids", ids))
	rows, err := s.db.QueryContext(ctx, query, namespaceOf(options), pq.Array(ids))
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

// Remove deletes a document by id.
func (s *Store) Remove(ctx context.Context, id string, opts ...vectorstores.Option) error {
	options := vectorstores.Apply(opts...)
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE namespace = $1 AND id = $2`, pq.QuoteIdentifier(s.table)), namespaceOf(options), id)
	return err
}

// Literal formats v as a pgvector text literal, e.g. [0.1,0.2].
func Literal(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*8 + 2)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row scanner, withDistance bool) (*schema.Document, error) {
	var id int64
	var content, metaJSON sql.NullString
	var distance float64
	dest := []interface{}{&id, &content, &metaJSON}
	if withDistance {
		dest = append(dest, &distance)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	metaMap, err := meta.Decode(metaJSON.String)
	if err != nil {
		return nil, err
	}
	return &schema.Document{ID: strconv.FormatInt(id, 10), PageContent: content.String, Metadata: metaMap, Score: distance}, nil
}

func namespaceOf(options vectorstores.Options) string {
	if options.NameSpace == "" {
		return defaultNamespace
	}
	return options.NameSpace
}
