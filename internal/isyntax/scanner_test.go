package isyntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunksOf(b []byte, size int) [][]byte {
	var chunks [][]byte
	for i := 0; i < len(b); i += size {
		end := i + size
		if end > len(b) {
			end = len(b)
		}
		chunks = append(chunks, b[i:end])
	}
	return chunks
}

func chunkedSource(b []byte, size int) ChunkSource {
	return NewSliceSource(chunksOf(b, size)...)
}

func TestFindHeader(t *testing.T) {
	header := []byte(`<?xml version="1.0" encoding="UTF-8"?>` + "\n" + `<DataObject ObjectType="DPUfsImport" />`)
	input := append(append([]byte{}, header...), "\r\n\x04binary payload follows"...)

	headerLen, chunkSize, buf, err := findHeader(context.Background(), chunkedSource(input, 16), nil)
	require.NoError(t, err)
	assert.Equal(t, len(header), headerLen)
	assert.Equal(t, 16, chunkSize)
	assert.Equal(t, header, buf[:headerLen])
}

func TestFindHeaderChunkSizeInvariance(t *testing.T) {
	header := []byte(`<?xml version="1.0" encoding="UTF-8"?>` + "\n" + `<DataObject ObjectType="DPUfsImport" />`)
	input := append(append([]byte{}, header...), "\r\n\x04\x00\x01\x02"...)

	for _, size := range []int{1, 3, 7, 16, 64, 4096} {
		headerLen, chunkSize, _, err := findHeader(context.Background(), chunkedSource(input, size), nil)
		require.NoError(t, err, "chunk size %d", size)
		assert.Equal(t, len(header), headerLen, "chunk size %d", size)
		if size < len(input) {
			assert.Equal(t, size, chunkSize)
		} else {
			assert.Equal(t, len(input), chunkSize)
		}
	}
}

func TestFindHeaderKeepsOverread(t *testing.T) {
	header := []byte(`<DataObject ObjectType="DPUfsImport" />`)
	input := append(append([]byte{}, header...), "\r\n\x04tail bytes"...)

	headerLen, _, buf, err := findHeader(context.Background(), chunkedSource(input, 1024), nil)
	require.NoError(t, err)
	// Bytes read past the header stay in the buffer so the stream can
	// replay them ahead of the upstream source.
	assert.Equal(t, input, buf)
	assert.Equal(t, len(header), headerLen)
}

func TestFindHeaderDelimiterErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{
			name:    "no terminator",
			input:   "<DataObject ObjectType=\"DPUfsImport\" />\n",
			wantMsg: "Header not found",
		},
		{
			name:    "crlf without terminator",
			input:   "<DataObject ObjectType=\"DPUfsImport\" />\n\r\n\n",
			wantMsg: "Header not found",
		},
		{
			name:    "terminator without crlf",
			input:   "<DataObject ObjectType=\"DPUfsImport\" />\x04\n",
			wantMsg: "Error decoding header",
		},
		{
			name:    "terminator after bare cr",
			input:   "<DataObject ObjectType=\"DPUfsImport\" />\n\r\x04\n",
			wantMsg: "Error decoding header",
		},
		{
			name:    "terminator after bare lf",
			input:   "<DataObject ObjectType=\"DPUfsImport\" />\n\n\x04\n",
			wantMsg: "Error decoding header",
		},
		{
			name:    "terminator at stream start",
			input:   "\x04rest",
			wantMsg: "Error decoding header",
		},
		{
			name:    "no closing bracket before terminator",
			input:   "no markup at all\r\n\x04",
			wantMsg: "Error decoding header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := findHeader(context.Background(), chunkedSource([]byte(tt.input), 16), nil)
			var formatErr *FormatError
			require.ErrorAs(t, err, &formatErr)
			assert.Equal(t, tt.wantMsg, formatErr.Error())
		})
	}
}

func TestFindHeaderCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _, err := findHeader(ctx, chunkedSource([]byte("<x />\r\n\x04"), 4), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
