package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectionTable(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"virtual_ta_collection", "virtual_ta_collection"},
		{"Virtual TA Collection", "virtual_ta_collection"},
		{"my-collection.v2", "my_collection_v2"},
		{"2024_notes", "c_2024_notes"},
		{"", "c_"},
		{"!!!", "_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, collectionTable(tt.in), "input %q", tt.in)
	}
}
