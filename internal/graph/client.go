// Package graph provides the persistent store for the dual-layer code
// knowledge representation: structural entities and relationships plus
// embedded code chunks, held in one FalkorDB graph.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RedisGraph/redisgraph-go"
	"github.com/gomodule/redigo/redis"

	"github.com/codegraph-labs/codegraph/internal/errs"
)

// Store is the interface for graph and vector operations. A single Store
// handle is opened per process and passed explicitly to every component.
type Store interface {
	// Name returns the component name.
	Name() string

	// Start opens the connection, verifies connectivity, and creates the
	// schema and vector index.
	Start(ctx context.Context) error

	// Stop drains pending writes and closes the connection.
	Stop(ctx context.Context) error

	// IsConnected returns true if connected to the database.
	IsConnected() bool

	// Dimension returns the embedding dimension the store is configured with.
	Dimension() int

	// UpsertFile creates or updates a file node, merged by path.
	UpsertFile(ctx context.Context, file *FileNode) error

	// UpsertChunk creates or updates a chunk node, merged by chunk_id,
	// and its CONTAINS_CHUNK edge from the owning file.
	UpsertChunk(ctx context.Context, chunk *ChunkNode) error

	// SetChunkEmbedding stores the embedding vector for a chunk.
	// A vector of mismatched dimension is rejected, never truncated.
	SetChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error

	// UpsertExtraction persists one chunk's extracted entities and
	// relationships as a single atomic unit.
	UpsertExtraction(ctx context.Context, filePath string, entities []EntityNode, rels []Relationship) error

	// ReplaceBridge replaces a chunk's bridge edges. With an entity the
	// chunk gets REPRESENTS plus entity-level PART_OF_FILE; with nil it
	// gets a file-level PART_OF_FILE only.
	ReplaceBridge(ctx context.Context, chunkID, filePath string, entity *EntityNode) error

	// EntitiesForFile returns the structural entities extracted from a file.
	EntitiesForFile(ctx context.Context, filePath string) ([]EntityNode, error)

	// EmbeddedChunksForFile returns a file's chunks that carry a vector.
	EmbeddedChunksForFile(ctx context.Context, filePath string) ([]ChunkNode, error)

	// SimilaritySearch returns the k nearest chunks to the query vector by
	// cosine similarity. Only chunks with a stored vector are candidates.
	SimilaritySearch(ctx context.Context, vector []float32, k int) ([]ChunkMatch, error)

	// AnchorForChunk follows a chunk's REPRESENTS edge, falling back to
	// PART_OF_FILE. Returns nil when the chunk has no bridge edge.
	AnchorForChunk(ctx context.Context, chunkID string) (*Anchor, error)

	// Neighbors returns the entities one structural hop away from entity,
	// in either direction.
	Neighbors(ctx context.Context, entity EntityNode) ([]Neighbor, error)

	// Query executes a raw Cypher query.
	Query(ctx context.Context, cypher string) (*QueryResult, error)

	// Stats summarizes graph contents.
	Stats(ctx context.Context) (*StoreStats, error)

	// Clear removes every node and relationship from the graph.
	Clear(ctx context.Context) error
}

// Config contains store connection configuration.
type Config struct {
	Host               string
	Port               int
	GraphName          string
	PasswordEnv        string
	MaxRetries         int
	RetryDelay         time.Duration
	WriteQueueSize     int
	EmbeddingDimension int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:               "localhost",
		Port:               6379,
		GraphName:          "codegraph",
		PasswordEnv:        "CODEGRAPH_GRAPH_PASSWORD",
		MaxRetries:         3,
		RetryDelay:         time.Second,
		WriteQueueSize:     1000,
		EmbeddingDimension: 3072,
	}
}

// FalkorDBStore implements Store using FalkorDB/RedisGraph.
type FalkorDBStore struct {
	mu        sync.RWMutex
	config    Config
	logger    *slog.Logger
	conn      redis.Conn
	graph     redisgraph.Graph
	connected bool

	// qmu serializes access to the underlying connection; redigo
	// connections are not safe for concurrent use.
	qmu sync.Mutex

	writeQueue chan writeOp
	wg         sync.WaitGroup
	stopChan   chan struct{}
}

// writeOp represents a queued write operation.
type writeOp struct {
	query  string
	result chan error
}

// Option configures the FalkorDB store.
type Option func(*FalkorDBStore)

// WithConfig sets the configuration.
func WithConfig(cfg Config) Option {
	return func(s *FalkorDBStore) {
		s.config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FalkorDBStore) {
		s.logger = logger
	}
}

// NewFalkorDBStore creates a new FalkorDB store client.
func NewFalkorDBStore(opts ...Option) *FalkorDBStore {
	s := &FalkorDBStore{
		config:   DefaultConfig(),
		logger:   slog.Default(),
		stopChan: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	size := s.config.WriteQueueSize
	if size <= 0 {
		size = 1000
	}
	s.writeQueue = make(chan writeOp, size)

	return s
}

// Name returns the component name.
func (s *FalkorDBStore) Name() string {
	return "graph"
}

// Dimension returns the embedding dimension the store is configured with.
func (s *FalkorDBStore) Dimension() int {
	return s.config.EmbeddingDimension
}

// Start opens the connection, verifies connectivity, and creates the schema.
func (s *FalkorDBStore) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}

	password := os.Getenv(s.config.PasswordEnv)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var dialOpts []redis.DialOption
	if password != "" {
		dialOpts = append(dialOpts, redis.DialPassword(password))
	}

	conn, err := redis.Dial("tcp", addr, dialOpts...)
	if err != nil {
		return &errs.StoreConnectivityError{Addr: addr, Err: err}
	}

	if _, err := conn.Do("PING"); err != nil {
		conn.Close()
		return &errs.StoreConnectivityError{Addr: addr, Err: err}
	}

	s.conn = conn
	s.graph = redisgraph.GraphNew(s.config.GraphName, conn)
	s.connected = true

	if err := s.initSchema(ctx); err != nil {
		s.logger.Warn("failed to create schema indexes", "error", err)
	}

	s.wg.Add(1)
	go s.processWriteQueue()

	s.logger.Info("connected to FalkorDB",
		"host", s.config.Host,
		"port", s.config.Port,
		"graph", s.config.GraphName,
		"dimension", s.config.EmbeddingDimension)

	return nil
}

// Stop drains pending writes and closes the connection.
func (s *FalkorDBStore) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	close(s.stopChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Debug("write queue drained")
	case <-ctx.Done():
		s.logger.Warn("write queue drain timed out")
	}

	if s.conn != nil {
		s.conn.Close()
	}

	s.connected = false
	s.logger.Info("disconnected from FalkorDB")

	return nil
}

// IsConnected returns true if connected to the database.
func (s *FalkorDBStore) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// execQuery runs a query on the shared connection.
func (s *FalkorDBStore) execQuery(query string) (*redisgraph.QueryResult, error) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return s.graph.Query(query)
}

// processWriteQueue handles queued write operations.
func (s *FalkorDBStore) processWriteQueue() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			// Drain remaining operations
			for {
				select {
				case op := <-s.writeQueue:
					s.executeWrite(op)
				default:
					return
				}
			}
		case op := <-s.writeQueue:
			s.executeWrite(op)
		}
	}
}

// executeWrite executes a write operation with retry.
func (s *FalkorDBStore) executeWrite(op writeOp) {
	var err error
	for i := 0; i <= s.config.MaxRetries; i++ {
		_, err = s.execQuery(op.query)
		if err == nil {
			if op.result != nil {
				op.result <- nil
			}
			return
		}

		if i < s.config.MaxRetries {
			time.Sleep(s.config.RetryDelay * time.Duration(1<<i))
		}
	}

	if op.result != nil {
		op.result <- err
	}
	s.logger.Error("write operation failed after retries", "error", err)
}

// queueWriteSync queues a write operation and waits for completion.
func (s *FalkorDBStore) queueWriteSync(query string) error {
	result := make(chan error, 1)
	select {
	case s.writeQueue <- writeOp{query: query, result: result}:
		return <-result
	default:
		return fmt.Errorf("write queue full")
	}
}

// UpsertFile creates or updates a file node, merged by path.
func (s *FalkorDBStore) UpsertFile(ctx context.Context, file *FileNode) error {
	if !s.IsConnected() {
		return fmt.Errorf("not connected to graph database")
	}

	return s.queueWriteSync(buildUpsertFileQuery(file))
}

// UpsertChunk creates or updates a chunk node and its CONTAINS_CHUNK edge.
// The embedding property is never touched here; it is written once by
// SetChunkEmbedding and immutable afterwards.
func (s *FalkorDBStore) UpsertChunk(ctx context.Context, chunk *ChunkNode) error {
	if !s.IsConnected() {
		return fmt.Errorf("not connected to graph database")
	}

	return s.queueWriteSync(buildUpsertChunkQuery(chunk))
}

// SetChunkEmbedding stores the embedding vector for a chunk.
func (s *FalkorDBStore) SetChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	if !s.IsConnected() {
		return fmt.Errorf("not connected to graph database")
	}

	if len(embedding) != s.config.EmbeddingDimension {
		return &errs.DimensionMismatchError{Want: s.config.EmbeddingDimension, Got: len(embedding)}
	}

	query := fmt.Sprintf(
		"MATCH (c:CodeChunk {chunk_id: '%s'}) SET c.embedding = %s",
		escapeString(chunkID), vectorLiteral(embedding))

	return s.queueWriteSync(query)
}

// UpsertExtraction persists one chunk's entities and relationships as a
// single Cypher statement, so a partial failure cannot leave entities
// without their relationships or vice versa.
func (s *FalkorDBStore) UpsertExtraction(ctx context.Context, filePath string, entities []EntityNode, rels []Relationship) error {
	if !s.IsConnected() {
		return fmt.Errorf("not connected to graph database")
	}

	if len(entities) == 0 && len(rels) == 0 {
		return nil
	}

	return s.queueWriteSync(buildExtractionQuery(filePath, entities, rels))
}

// ReplaceBridge replaces a chunk's bridge edges.
func (s *FalkorDBStore) ReplaceBridge(ctx context.Context, chunkID, filePath string, entity *EntityNode) error {
	if !s.IsConnected() {
		return fmt.Errorf("not connected to graph database")
	}

	return s.queueWriteSync(buildReplaceBridgeQuery(chunkID, filePath, entity))
}

// EntitiesForFile returns the structural entities extracted from a file.
func (s *FalkorDBStore) EntitiesForFile(ctx context.Context, filePath string) ([]EntityNode, error) {
	if !s.IsConnected() {
		return nil, fmt.Errorf("not connected to graph database")
	}

	var entities []EntityNode
	for _, label := range EntityLabels {
		result, err := s.execQuery(buildEntitiesForFileQuery(label, filePath))
		if err != nil {
			return nil, fmt.Errorf("query failed; %w", err)
		}

		for result.Next() {
			record := result.Record()
			entities = append(entities, EntityNode{
				Label:          label,
				Name:           getStringFromRecord(record, 0),
				NormalizedName: getStringFromRecord(record, 1),
				FilePath:       filePath,
				StartLine:      getIntFromRecord(record, 2),
				EndLine:        getIntFromRecord(record, 3),
			})
		}
	}

	return entities, nil
}

// EmbeddedChunksForFile returns a file's chunks that carry a vector.
func (s *FalkorDBStore) EmbeddedChunksForFile(ctx context.Context, filePath string) ([]ChunkNode, error) {
	if !s.IsConnected() {
		return nil, fmt.Errorf("not connected to graph database")
	}

	query := fmt.Sprintf(`
		MATCH (c:CodeChunk {file_path: '%s'})
		WHERE c.embedding IS NOT NULL
		RETURN c.chunk_id, c.text, c.language, c.index, c.start_line, c.end_line
		ORDER BY c.chunk_id
	`, escapeString(filePath))

	result, err := s.execQuery(query)
	if err != nil {
		return nil, fmt.Errorf("query failed; %w", err)
	}

	var chunks []ChunkNode
	for result.Next() {
		record := result.Record()
		chunks = append(chunks, ChunkNode{
			ChunkID:      getStringFromRecord(record, 0),
			FilePath:     filePath,
			Text:         getStringFromRecord(record, 1),
			Language:     getStringFromRecord(record, 2),
			Index:        getIntFromRecord(record, 3),
			StartLine:    getIntFromRecord(record, 4),
			EndLine:      getIntFromRecord(record, 5),
			HasEmbedding: true,
		})
	}

	return chunks, nil
}

// SimilaritySearch returns the k nearest chunks by cosine similarity.
// The KNN procedure yields cosine distance; similarity is 1 - distance.
func (s *FalkorDBStore) SimilaritySearch(ctx context.Context, vector []float32, k int) ([]ChunkMatch, error) {
	if !s.IsConnected() {
		return nil, fmt.Errorf("not connected to graph database")
	}

	if len(vector) != s.config.EmbeddingDimension {
		return nil, &errs.DimensionMismatchError{Want: s.config.EmbeddingDimension, Got: len(vector)}
	}

	query := fmt.Sprintf(`
		CALL db.idx.vector.queryNodes('CodeChunk', 'embedding', %d, %s)
		YIELD node, score
		RETURN node.chunk_id, node.file_path, node.text, node.language,
			   node.index, node.start_line, node.end_line, score
	`, k, vectorLiteral(vector))

	result, err := s.execQuery(query)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed; %w", err)
	}

	var matches []ChunkMatch
	for result.Next() {
		record := result.Record()
		matches = append(matches, ChunkMatch{
			Chunk: ChunkNode{
				ChunkID:      getStringFromRecord(record, 0),
				FilePath:     getStringFromRecord(record, 1),
				Text:         getStringFromRecord(record, 2),
				Language:     getStringFromRecord(record, 3),
				Index:        getIntFromRecord(record, 4),
				StartLine:    getIntFromRecord(record, 5),
				EndLine:      getIntFromRecord(record, 6),
				HasEmbedding: true,
			},
			Score: 1.0 - getFloatFromRecord(record, 7),
		})
	}

	return matches, nil
}

// AnchorForChunk follows REPRESENTS, then PART_OF_FILE.
func (s *FalkorDBStore) AnchorForChunk(ctx context.Context, chunkID string) (*Anchor, error) {
	if !s.IsConnected() {
		return nil, fmt.Errorf("not connected to graph database")
	}

	for _, rel := range []string{RelRepresents, RelPartOfFile} {
		query := fmt.Sprintf(`
			MATCH (c:CodeChunk {chunk_id: '%s'})-[:%s]->(e)
			RETURN labels(e)[0], coalesce(e.name, e.path), coalesce(e.normalized_name, e.path),
				   coalesce(e.file_path, e.path), e.start_line, e.end_line
		`, escapeString(chunkID), rel)

		result, err := s.execQuery(query)
		if err != nil {
			return nil, fmt.Errorf("query failed; %w", err)
		}

		if result.Next() {
			record := result.Record()
			return &Anchor{
				ChunkID: chunkID,
				Rel:     rel,
				Entity: EntityNode{
					Label:          getStringFromRecord(record, 0),
					Name:           getStringFromRecord(record, 1),
					NormalizedName: getStringFromRecord(record, 2),
					FilePath:       getStringFromRecord(record, 3),
					StartLine:      getIntFromRecord(record, 4),
					EndLine:        getIntFromRecord(record, 5),
				},
			}, nil
		}
	}

	return nil, nil
}

// Neighbors returns the entities one structural hop away, both directions.
func (s *FalkorDBStore) Neighbors(ctx context.Context, entity EntityNode) ([]Neighbor, error) {
	if !s.IsConnected() {
		return nil, fmt.Errorf("not connected to graph database")
	}

	match := entityMatchClause("s", entity)

	var neighbors []Neighbor
	for _, dir := range []struct {
		pattern  string
		outgoing bool
	}{
		{fmt.Sprintf("%s-[r]->(t)", match), true},
		{fmt.Sprintf("%s<-[r]-(t)", match), false},
	} {
		query := fmt.Sprintf(`
			MATCH %s
			WHERE type(r) IN ['CONTAINS', 'INHERITS', 'IMPLEMENTS', 'CALLS', 'IMPORTS', 'DEPENDS_ON']
			RETURN type(r), labels(t)[0], coalesce(t.name, t.path), coalesce(t.normalized_name, t.path),
				   coalesce(t.file_path, t.path), t.start_line, t.end_line
		`, dir.pattern)

		result, err := s.execQuery(query)
		if err != nil {
			return nil, fmt.Errorf("neighbor query failed; %w", err)
		}

		for result.Next() {
			record := result.Record()
			neighbors = append(neighbors, Neighbor{
				Rel:      getStringFromRecord(record, 0),
				Outgoing: dir.outgoing,
				Entity: EntityNode{
					Label:          getStringFromRecord(record, 1),
					Name:           getStringFromRecord(record, 2),
					NormalizedName: getStringFromRecord(record, 3),
					FilePath:       getStringFromRecord(record, 4),
					StartLine:      getIntFromRecord(record, 5),
					EndLine:        getIntFromRecord(record, 6),
				},
			})
		}
	}

	return neighbors, nil
}

// Query executes a raw Cypher query.
func (s *FalkorDBStore) Query(ctx context.Context, cypher string) (*QueryResult, error) {
	if !s.IsConnected() {
		return nil, fmt.Errorf("not connected to graph database")
	}

	result, err := s.execQuery(cypher)
	if err != nil {
		return nil, fmt.Errorf("query failed; %w", err)
	}

	return convertQueryResult(result), nil
}

// Stats summarizes graph contents.
func (s *FalkorDBStore) Stats(ctx context.Context) (*StoreStats, error) {
	if !s.IsConnected() {
		return nil, fmt.Errorf("not connected to graph database")
	}

	stats := &StoreStats{
		Nodes:         make(map[string]int),
		Relationships: make(map[string]int),
	}

	labels := []string{LabelFile, LabelCodeChunk, LabelClass, LabelFunction, LabelInterface, LabelPackage}
	for _, label := range labels {
		count, err := s.countRows(fmt.Sprintf("MATCH (n:%s) RETURN count(n)", label))
		if err != nil {
			return nil, err
		}
		stats.Nodes[label] = count
	}

	rels := []string{RelContains, RelContainsChunk, RelInherits, RelImplements,
		RelCalls, RelImports, RelDependsOn, RelRepresents, RelPartOfFile}
	for _, rel := range rels {
		count, err := s.countRows(fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", rel))
		if err != nil {
			return nil, err
		}
		stats.Relationships[rel] = count
	}

	embedded, err := s.countRows("MATCH (c:CodeChunk) WHERE c.embedding IS NOT NULL RETURN count(c)")
	if err != nil {
		return nil, err
	}
	stats.EmbeddedChunks = embedded

	if result, err := s.execQuery("CALL db.indexes()"); err == nil {
		for result.Next() {
			record := result.Record()
			row := fmt.Sprintf("%v", record.Values())
			if strings.Contains(row, "embedding") {
				stats.VectorIndexPresent = true
			}
		}
	}

	return stats, nil
}

// Clear removes every node and relationship from the graph.
func (s *FalkorDBStore) Clear(ctx context.Context) error {
	if !s.IsConnected() {
		return fmt.Errorf("not connected to graph database")
	}

	return s.queueWriteSync("MATCH (n) DETACH DELETE n")
}

func (s *FalkorDBStore) countRows(query string) (int, error) {
	result, err := s.execQuery(query)
	if err != nil {
		return 0, fmt.Errorf("count query failed; %w", err)
	}

	if result.Next() {
		return getIntFromRecord(result.Record(), 0), nil
	}

	return 0, nil
}

// convertQueryResult converts a RedisGraph result to our QueryResult type.
func convertQueryResult(result *redisgraph.QueryResult) *QueryResult {
	qr := &QueryResult{
		Stats: QueryStats{
			NodesCreated:     result.NodesCreated(),
			NodesDeleted:     result.NodesDeleted(),
			RelationsCreated: result.RelationshipsCreated(),
			RelationsDeleted: result.RelationshipsDeleted(),
			PropertiesSet:    result.PropertiesSet(),
			ExecutionTimeMs:  float64(result.RunTime()),
		},
	}

	for result.Next() {
		record := result.Record()
		values := record.Values()
		row := make([]any, len(values))
		copy(row, values)
		qr.Rows = append(qr.Rows, row)
	}

	return qr
}

// Helper functions for type conversions from record

func getStringFromRecord(record *redisgraph.Record, index int) string {
	val := record.GetByIndex(index)
	if val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", val)
}

func getIntFromRecord(record *redisgraph.Record, index int) int {
	val := record.GetByIndex(index)
	if val == nil {
		return 0
	}
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func getFloatFromRecord(record *redisgraph.Record, index int) float64 {
	val := record.GetByIndex(index)
	if val == nil {
		return 0
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// escapeString escapes single quotes and backslashes for Cypher queries.
func escapeString(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '\'':
			b.WriteString("\\'")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// NormalizeName lowercases and trims an identifier for natural-key merging.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// vectorLiteral formats an embedding as a FalkorDB vecf32 literal.
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteString("vecf32([")
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteString("])")
	return b.String()
}
