package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ericnjogu/video-object-detection/internal/message"
)

// Store manages the PostgreSQL connection used by the detection handler.
type Store struct {
	conn *pgx.Conn
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS detection_requests (
			id TEXT PRIMARY KEY,
			instance_name TEXT NOT NULL,
			source TEXT NOT NULL,
			frame_count BIGINT NOT NULL,
			start_timestamp DOUBLE PRECISION NOT NULL,
			detection_classes INT[] NOT NULL,
			detection_scores REAL[] NOT NULL,
			detection_boxes REAL[] NOT NULL,
			category_index JSONB NOT NULL DEFAULT '{}',
			frame_height INT NOT NULL DEFAULT 0,
			frame_width INT NOT NULL DEFAULT 0,
			received_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS detection_requests_source_idx ON detection_requests (instance_name, source);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// InsertRequest stores a received request. Requests are keyed by their id, so
// a request delivered twice is stored once; inserted is false for the repeat.
func (s *Store) InsertRequest(ctx context.Context, req *message.DetectionRequest) (inserted bool, err error) {
	categories := req.CategoryIndex
	if categories == nil {
		categories = map[int32]string{}
	}
	classes, scores := req.DetectionClasses, req.DetectionScores
	if classes == nil {
		classes = []int32{}
	}
	if scores == nil {
		scores = []float32{}
	}
	boxes := req.DetectionBoxes.Numbers
	if boxes == nil {
		boxes = []float32{}
	}

	tag, err := s.conn.Exec(ctx, `
		INSERT INTO detection_requests
			(id, instance_name, source, frame_count, start_timestamp,
			 detection_classes, detection_scores, detection_boxes, category_index, frame_height, frame_width)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		req.ID, req.InstanceName, req.Source, req.FrameCount, req.StartTimestamp,
		classes, scores, boxes, categories,
		int(req.FloatMap["frame_height"]), int(req.FloatMap["frame_width"]),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert request %s: %w", req.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// StoredRequest is a persisted detection request without its frame.
type StoredRequest struct {
	ID             string
	InstanceName   string
	Source         string
	FrameCount     int64
	StartTimestamp float64
	Classes        []int32
	Scores         []float32
	CategoryIndex  map[int32]string
	ReceivedAt     time.Time
}

// ListRequests returns the most recent requests first. An empty instance
// matches every instance; limit <= 0 means no limit.
func (s *Store) ListRequests(ctx context.Context, instance string, limit int) ([]StoredRequest, error) {
	query := `
		SELECT id, instance_name, source, frame_count, start_timestamp,
		       detection_classes, detection_scores, category_index, received_at
		FROM detection_requests
		WHERE $1 = '' OR instance_name = $1
		ORDER BY received_at DESC, frame_count DESC`
	args := []any{instance}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []StoredRequest
	for rows.Next() {
		var r StoredRequest
		if err := rows.Scan(&r.ID, &r.InstanceName, &r.Source, &r.FrameCount, &r.StartTimestamp,
			&r.Classes, &r.Scores, &r.CategoryIndex, &r.ReceivedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `DROP TABLE IF EXISTS detection_requests CASCADE;`)
	return err
}
