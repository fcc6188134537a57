package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	id, err := st.Create(ctx, "videos", map[string]any{
		"originalName":   "beach.mp4",
		"indexingStatus": "pending",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := st.Get(ctx, "videos", id)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, doc.Decode(&got))
	assert.Equal(t, "beach.mp4", got["originalName"])

	err = st.Update(ctx, "videos", id, map[string]any{
		"indexingStatus": "indexing",
		"originalName":   DeleteField,
	})
	require.NoError(t, err)

	doc, err = st.Get(ctx, "videos", id)
	require.NoError(t, err)
	got = nil
	require.NoError(t, doc.Decode(&got))
	assert.Equal(t, "indexing", got["indexingStatus"])
	assert.NotContains(t, got, "originalName")

	require.NoError(t, st.Delete(ctx, "videos", id))
	_, err = st.Get(ctx, "videos", id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	err := st.Update(ctx, "videos", "nope", map[string]any{"x": 1})
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, st.Delete(ctx, "videos", "nope"), ErrNotFound)
}

func TestMemoryStore_ServerTimestamp(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return fixed })

	id, err := st.Create(ctx, "conversations", map[string]any{
		"createdAt": ServerTimestamp,
	})
	require.NoError(t, err)

	doc, err := st.Get(ctx, "conversations", id)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, doc.Decode(&got))

	ts, err := time.Parse(time.RFC3339Nano, got["createdAt"].(string))
	require.NoError(t, err)
	assert.True(t, ts.Equal(fixed))
}

func TestMemoryStore_QueryFiltersOrderLimit(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, tags := range [][]string{
		{"joyful", "cozy"},
		{"nostalgic"},
		{"joyful"},
	} {
		_, err := st.Create(ctx, "videos", map[string]any{
			"indexingStatus": "completed",
			"emotionTags":    tags,
			"uploadedAt":     base.Add(time.Duration(i) * time.Hour),
			"n":              i,
		})
		require.NoError(t, err)
	}
	_, err := st.Create(ctx, "videos", map[string]any{
		"indexingStatus": "pending",
		"emotionTags":    []string{"joyful"},
		"uploadedAt":     base.Add(10 * time.Hour),
	})
	require.NoError(t, err)

	docs, err := st.Query(ctx, "videos", Query{
		Filters: []Filter{
			{Field: "indexingStatus", Op: OpEq, Value: "completed"},
			{Field: "emotionTags", Op: OpArrayContains, Value: "joyful"},
		},
		OrderBy: "uploadedAt",
		Desc:    true,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	var first map[string]any
	require.NoError(t, docs[0].Decode(&first))
	assert.Equal(t, float64(2), first["n"])

	docs, err = st.Query(ctx, "videos", Query{OrderBy: "uploadedAt", Desc: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestMemoryStore_TimeOrderingIgnoresFractionalPrecision(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	// "…:00.5Z" sorts before "…:00Z" as text; chronological order is the
	// contract for timestamp fields.
	early, err := st.Create(ctx, "videos", map[string]any{
		"uploadedAt": time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	late, err := st.Create(ctx, "videos", map[string]any{
		"uploadedAt": time.Date(2026, 1, 1, 12, 0, 0, 500_000_000, time.UTC),
	})
	require.NoError(t, err)

	docs, err := st.Query(ctx, "videos", Query{OrderBy: "uploadedAt", OrderByTime: true})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, early, docs[0].ID)
	assert.Equal(t, late, docs[1].ID)
}

func TestMemoryStore_ArrayAppend(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	id, err := st.Create(ctx, "conversations", map[string]any{})
	require.NoError(t, err)

	err = st.ArrayAppend(ctx, "conversations", id, "messages",
		map[string]any{"role": "user", "content": "hi"},
		map[string]any{"role": "assistant", "content": "hello"},
	)
	require.NoError(t, err)

	doc, err := st.Get(ctx, "conversations", id)
	require.NoError(t, err)
	var got struct {
		Messages []map[string]any `json:"messages"`
	}
	require.NoError(t, doc.Decode(&got))
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "user", got.Messages[0]["role"])
	assert.Equal(t, "assistant", got.Messages[1]["role"])
}
