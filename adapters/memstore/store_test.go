package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetview/domain/sheet"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	c := &sheet.Collection{Fields: []string{"a"}, Records: []sheet.Record{{"a": sheet.Text("1")}}}
	require.NoError(t, s.Save(ctx, c))
	c.Records[0]["a"] = sheet.Text("changed")

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", got.Records[0].Get("a").String(), "saved copy is isolated from the caller")

	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
