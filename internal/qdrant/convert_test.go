package qdrant

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
)

func TestConvertToQdrantPoint(t *testing.T) {
	t.Run("numeric id", func(t *testing.T) {
		p := convertToQdrantPoint(&vectorstore.Point{
			ID:     vectorstore.NumID(0),
			Vector: []float32{0.1, 0.2},
			Payload: map[string]any{
				"text":        "USER: hi",
				"chunk_index": int64(0),
				"timestamp":   nil,
				"message_ids": []string{"a", "b"},
			},
		})
		assert.Equal(t, uint64(0), p.GetId().GetNum())
		assert.Equal(t, "USER: hi", p.GetPayload()["text"].GetStringValue())
		assert.Equal(t, int64(0), p.GetPayload()["chunk_index"].GetIntegerValue())
		_, isNull := p.GetPayload()["timestamp"].GetKind().(*qdrant.Value_NullValue)
		assert.True(t, isNull)

		ids := p.GetPayload()["message_ids"].GetListValue().GetValues()
		require.Len(t, ids, 2)
		assert.Equal(t, "b", ids[1].GetStringValue())
	})

	t.Run("uuid id", func(t *testing.T) {
		p := convertToQdrantPoint(&vectorstore.Point{ID: vectorstore.UUIDID("6f1c2a52-6a4f-5d5c-9f3e-0c6d5c1a2b3c")})
		assert.Equal(t, "6f1c2a52-6a4f-5d5c-9f3e-0c6d5c1a2b3c", p.GetId().GetUuid())
	})
}

func TestConvertToQdrantValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		check func(t *testing.T, v *qdrant.Value)
	}{
		{"string", "hello", func(t *testing.T, v *qdrant.Value) { assert.Equal(t, "hello", v.GetStringValue()) }},
		{"int", 42, func(t *testing.T, v *qdrant.Value) { assert.Equal(t, int64(42), v.GetIntegerValue()) }},
		{"float32", float32(1.5), func(t *testing.T, v *qdrant.Value) { assert.Equal(t, 1.5, v.GetDoubleValue()) }},
		{"bool", true, func(t *testing.T, v *qdrant.Value) { assert.True(t, v.GetBoolValue()) }},
		{"any list", []any{"x", int64(1)}, func(t *testing.T, v *qdrant.Value) {
			assert.Len(t, v.GetListValue().GetValues(), 2)
		}},
		{"map", map[string]any{"k": "v"}, func(t *testing.T, v *qdrant.Value) {
			assert.Equal(t, "v", v.GetStructValue().GetFields()["k"].GetStringValue())
		}},
		{"fallback", struct{ A int }{A: 1}, func(t *testing.T, v *qdrant.Value) {
			assert.Equal(t, "{1}", v.GetStringValue())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, convertToQdrantValue(tt.input))
		})
	}
}

func TestExtractPayload(t *testing.T) {
	payload := convertToQdrantPoint(&vectorstore.Point{Payload: map[string]any{
		"text":      "ASSISTANT: yes",
		"roles":     []string{"user", "assistant"},
		"timestamp": nil,
		"score":     0.5,
	}}).GetPayload()

	got := extractPayload(payload)
	assert.Equal(t, "ASSISTANT: yes", got["text"])
	assert.Equal(t, []any{"user", "assistant"}, got["roles"])
	assert.Nil(t, got["timestamp"])
	assert.Equal(t, 0.5, got["score"])
}

func TestExtractPointID(t *testing.T) {
	assert.Equal(t, vectorstore.NumID(0), extractPointID(qdrant.NewIDNum(0)))
	assert.Equal(t, vectorstore.NumID(69), extractPointID(qdrant.NewIDNum(69)))
	assert.Equal(t, vectorstore.UUIDID("abc"), extractPointID(qdrant.NewIDUUID("abc")))
	assert.Equal(t, vectorstore.PointID{}, extractPointID(nil))
}

func TestConvertCollectionInfo(t *testing.T) {
	info := &qdrant.CollectionInfo{
		PointsCount: qdrant.PtrOf(uint64(70)),
		Config: &qdrant.CollectionConfig{
			Params: &qdrant.CollectionParams{
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{Size: 384, Distance: qdrant.Distance_Cosine}),
			},
		},
	}
	got := convertCollectionInfo("chatgpt_conversations", info)
	assert.Equal(t, "chatgpt_conversations", got.Name)
	assert.Equal(t, 70, got.PointCount)
	assert.Equal(t, 384, got.VectorSize)

	assert.Equal(t, 0, convertCollectionInfo("x", nil).PointCount)
}
