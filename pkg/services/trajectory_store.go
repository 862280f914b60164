package services

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/codeready-toolchain/dialectica/pkg/trajectory"
)

// TrajectoryStore implements trajectory.Persister against raw SQL. Embedding vectors are encoded as
// little-endian float64 arrays — the pack carries no vector-serialization
// library, and a fixed-width binary encoding via encoding/binary is the
// simplest format an external tool can decode without pulling in a codec
// purely to store a slice of floats.
type TrajectoryStore struct {
	db *sql.DB
}

// NewTrajectoryStore creates a new TrajectoryStore.
func NewTrajectoryStore(db *sql.DB) *TrajectoryStore {
	if db == nil {
		panic("NewTrajectoryStore: db must not be nil")
	}
	return &TrajectoryStore{db: db}
}

// SaveTrajectoryPoint appends one row to the append-only trajectory table.
func (s *TrajectoryStore) SaveTrajectoryPoint(ctx context.Context, p trajectory.Point) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trajectory_points (session_id, cycle, claim_text, embedding, support_strength)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.SessionID, p.CycleNumber, p.ClaimText, encodeEmbedding(p.EmbeddingVector), p.SupportStrength,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trajectory point: %w", err)
	}
	return nil
}

func encodeEmbedding(vec []float64) []byte {
	buf := make([]byte, 8*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float64 {
	vec := make([]float64, len(buf)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec
}
