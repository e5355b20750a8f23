package models

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentDecode(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("hello world"))

	tests := []struct {
		name    string
		att     Attachment
		want    string
		wantErr string
	}{
		{
			name: "valid data url",
			att:  Attachment{Name: "notes.txt", URL: "data:text/plain;base64," + payload},
			want: "hello world",
		},
		{
			name:    "not a data url",
			att:     Attachment{Name: "notes.txt", URL: "https://example.com/notes.txt"},
			wantErr: "not a data URL",
		},
		{
			name:    "missing base64 marker",
			att:     Attachment{Name: "notes.txt", URL: "data:text/plain,hello"},
			wantErr: "no base64 payload",
		},
		{
			name:    "corrupt base64",
			att:     Attachment{Name: "notes.txt", URL: "data:text/plain;base64,!!!"},
			wantErr: "failed to decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.att.Decode()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}
