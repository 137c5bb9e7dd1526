package embedding

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/kailas-cloud/roommatch/internal/domain"
)

// recordDTO is the persisted shape of a domain.EmbeddingRecord.
// The vector is stored as base64 of little-endian float32 bytes: compact,
// and typed decode failure stays distinguishable from a missing record.
type recordDTO struct {
	EntityID    string `json:"entity_id"`
	Kind        string `json:"entity_kind"`
	Vector      string `json:"vector"`
	ContentHash string `json:"content_hash"`
	GeneratedAt int64  `json:"generated_at"` // unix millis
}

func buildRecordDTO(rec domain.EmbeddingRecord) recordDTO {
	return recordDTO{
		EntityID:    rec.EntityID,
		Kind:        string(rec.Kind),
		Vector:      base64.StdEncoding.EncodeToString(vectorToBytes(rec.Vector)),
		ContentHash: rec.ContentHash,
		GeneratedAt: rec.GeneratedAt.UnixMilli(),
	}
}

func parseRecord(data []byte) (domain.EmbeddingRecord, error) {
	var dto recordDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return domain.EmbeddingRecord{}, fmt.Errorf("unmarshal record: %w", err)
	}
	if dto.EntityID == "" || dto.ContentHash == "" {
		return domain.EmbeddingRecord{}, fmt.Errorf("record missing entity_id or content_hash")
	}

	raw, err := base64.StdEncoding.DecodeString(dto.Vector)
	if err != nil {
		return domain.EmbeddingRecord{}, fmt.Errorf("decode vector: %w", err)
	}
	vec, err := bytesToVector(raw)
	if err != nil {
		return domain.EmbeddingRecord{}, err
	}

	return domain.EmbeddingRecord{
		EntityID:    dto.EntityID,
		Kind:        domain.EntityKind(dto.Kind),
		Vector:      vec,
		ContentHash: dto.ContentHash,
		GeneratedAt: time.UnixMilli(dto.GeneratedAt).UTC(),
	}, nil
}

// vectorToBytes serializes []float32 to 4 bytes per float, little-endian.
func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data: len=%d (not multiple of 4)", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}
