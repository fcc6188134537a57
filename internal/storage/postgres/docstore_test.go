package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/memorylane/internal/docstore"
)

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name string
		q    docstore.Query
		want string
	}{
		{
			name: "no order falls back to id",
			q:    docstore.Query{},
			want: ` ORDER BY id ASC`,
		},
		{
			name: "text field",
			q:    docstore.Query{OrderBy: "fileName"},
			want: ` ORDER BY data->>'fileName' ASC NULLS LAST`,
		},
		{
			name: "timestamp field gets a cast so fractional-second precision cannot mis-order",
			q:    docstore.Query{OrderBy: "uploadedAt", OrderByTime: true, Desc: true},
			want: ` ORDER BY (data->>'uploadedAt')::timestamptz DESC NULLS LAST`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := orderClause(tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderClause_RejectsUnsafeFieldName(t *testing.T) {
	_, err := orderClause(docstore.Query{OrderBy: "x'; DROP TABLE documents; --"})
	require.Error(t, err)
}
