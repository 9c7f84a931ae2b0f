//go:build test_unit

package engine

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGD3(fields ...string) []byte {
	var body bytes.Buffer
	for i := 0; i < 11; i++ {
		var s string
		if i < len(fields) {
			s = fields[i]
		}
		for _, u := range utf16.Encode([]rune(s)) {
			_ = binary.Write(&body, binary.LittleEndian, u)
		}
		body.Write([]byte{0, 0})
	}

	out := make([]byte, 12)
	copy(out, gd3Ident)
	binary.LittleEndian.PutUint32(out[4:], 0x100)
	binary.LittleEndian.PutUint32(out[8:], uint32(body.Len()))
	return append(out, body.Bytes()...)
}

func TestParseGD3(t *testing.T) {
	tags, err := parseGD3(buildGD3("Title", "タイトル", "Game", "", "Mega Drive", "", "", "作曲者", "1991", "ripper", "notes"))
	require.NoError(t, err)

	assert.Equal(t, Tags{
		TagTitle:   "Title",
		TagGame:    "Game",
		TagSystem:  "Mega Drive",
		TagArtist:  "作曲者",
		TagDate:    "1991",
		TagRipper:  "ripper",
		TagComment: "notes",
	}, tags)
}

func TestParseGD3_JapaneseFallback(t *testing.T) {
	tags, err := parseGD3(buildGD3("  ", "タイトル"))
	require.NoError(t, err)
	assert.Equal(t, Tags{TagTitle: "タイトル"}, tags)
}

func TestParseGD3_Truncated(t *testing.T) {
	data := buildGD3("Title", "", "Game")
	tags, err := parseGD3(data[:12+len("Title")*2+2+2])
	require.NoError(t, err)
	assert.Equal(t, Tags{TagTitle: "Title"}, tags)
}

func TestParseGD3_Invalid(t *testing.T) {
	_, err := parseGD3([]byte("Gd3"))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = parseGD3(append([]byte("XXXX"), make([]byte, 20)...))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestParseS98Tags(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Tags
	}{
		{
			name: "plain title",
			data: []byte("Opening\x00garbage"),
			want: Tags{TagTitle: "Opening"},
		},
		{
			name: "empty",
			data: []byte{0},
			want: Tags{},
		},
		{
			name: "utf8 block",
			data: []byte("[S98]\xef\xbb\xbftitle=Stage 1\r\ns98by=someone\ninvalid line\n=novalue\ncomment= \n\x00"),
			want: Tags{TagTitle: "Stage 1", TagRipper: "someone"},
		},
		{
			name: "shift-jis block",
			data: append([]byte("[S98]title="), 0x83, 0x65, 0x83, 0x58, 0x83, 0x67, 0x0a, 0x00),
			want: Tags{TagTitle: "テスト"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags, err := parseS98Tags(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tags)
		})
	}
}
