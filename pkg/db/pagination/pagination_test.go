package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "123", CreatedAt: "2024-03-01T12:00:00Z"})
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := DecodeCursor(token)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "123", decoded.ID)
	assert.Equal(t, "2024-03-01T12:00:00Z", decoded.CreatedAt)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not base64!!")
	assert.Error(t, err)
}

type item struct{ id string }

func TestBuildCursorPageInfo(t *testing.T) {
	extract := func(i *item) string { return i.id }

	t.Run("empty", func(t *testing.T) {
		info := BuildCursorPageInfo(nil, 3, extract)
		assert.False(t, info.HasMore)
		assert.Empty(t, info.NextPageToken)
	})

	t.Run("partial page", func(t *testing.T) {
		items := []*item{{id: "a"}, {id: "b"}}
		info := BuildCursorPageInfo(items, 3, extract)
		assert.False(t, info.HasMore)
		assert.Equal(t, "b", info.NextPageToken)
	})

	t.Run("extra row signals more", func(t *testing.T) {
		items := []*item{{id: "a"}, {id: "b"}, {id: "c"}, {id: "d"}}
		info := BuildCursorPageInfo(items, 3, extract)
		assert.True(t, info.HasMore)
		assert.Equal(t, "c", info.NextPageToken)
	})
}
