package error

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecError_Error(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expr.json")
	require.NoError(t, os.WriteFile(path, []byte("{\n  \"start\": 1\n}\n"), 0644))

	cause := errors.New("bad value")
	tests := []struct {
		caption  string
		err      *SpecError
		expected string
	}{
		{
			caption:  "cause only",
			err:      &SpecError{Cause: cause},
			expected: "error: bad value",
		},
		{
			caption:  "with a detail and a source name",
			err:      &SpecError{Cause: cause, Detail: "start", SourceName: "expr.json"},
			expected: "expr.json: error: bad value: start",
		},
		{
			caption:  "with the source line",
			err:      &SpecError{Cause: cause, FilePath: path, SourceName: "expr.json", Row: 2},
			expected: "expr.json: 2: error: bad value\n      \"start\": 1",
		},
		{
			caption:  "with a column marker",
			err:      &SpecError{Cause: cause, FilePath: path, SourceName: "expr.json", Row: 2, Col: 12},
			expected: "expr.json: 2:12: error: bad value\n      \"start\": 1\n               ^",
		},
		{
			caption:  "a row past the end",
			err:      &SpecError{Cause: cause, FilePath: path, Row: 9},
			expected: "9: error: bad value",
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("#%v %v", i, tt.caption), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.True(t, errors.Is(tt.err, cause))
		})
	}
}
