package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

const (
	TagTitle   = "title"
	TagGame    = "game"
	TagSystem  = "system"
	TagArtist  = "artist"
	TagDate    = "date"
	TagRipper  = "ripper"
	TagComment = "comment"
)

// Tags holds song metadata keyed by the Tag* constants, formats with free form
// tags may carry additional keys.
type Tags map[string]string

var gd3Ident = []byte("Gd3 ")

// gd3Fields lists the GD3 strings in file order, empty names are skipped.
// Japanese variants are used only when the English one is empty.
var gd3Fields = []struct{ key, fallback string }{
	{TagTitle, ""}, {"", TagTitle},
	{TagGame, ""}, {"", TagGame},
	{TagSystem, ""}, {"", TagSystem},
	{TagArtist, ""}, {"", TagArtist},
	{TagDate, ""},
	{TagRipper, ""},
	{TagComment, ""},
}

func parseGD3(data []byte) (Tags, error) {
	if len(data) < 12 || !bytes.Equal(data[:4], gd3Ident) {
		return nil, fmt.Errorf("%w: missing GD3 identifier", ErrInvalidHeader)
	}

	length := binary.LittleEndian.Uint32(data[8:12])
	body := data[12:]
	if uint64(length) < uint64(len(body)) {
		body = body[:length]
	}

	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

	tags := Tags{}
	for _, field := range gd3Fields {
		var raw []byte
		raw, body = splitUTF16(body)

		val, err := dec.Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("failed decoding GD3 string: %w", err)
		}

		s := strings.TrimSpace(string(val))
		if s == "" {
			continue
		}

		if field.key != "" {
			tags[field.key] = s
		} else if tags[field.fallback] == "" {
			tags[field.fallback] = s
		}
	}

	return tags, nil
}

// splitUTF16 returns the null terminated UTF-16 string at the start of b and the remainder.
func splitUTF16(b []byte) ([]byte, []byte) {
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return b[:i], b[i+2:]
		}
	}

	return b[:len(b)&^1], nil
}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

var s98TagIdent = []byte("[S98]")

// s98TagKeys renames the well known S98 tag keys.
var s98TagKeys = map[string]string{
	"title":     TagTitle,
	"artist":    TagArtist,
	"game":      TagGame,
	"year":      TagDate,
	"system":    TagSystem,
	"comment":   TagComment,
	"s98by":     TagRipper,
	"genre":     "genre",
	"copyright": "copyright",
}

// parseS98Tags parses the tag area of an S98 file. Version 3 files store a
// "[S98]" block of key=value lines, older ones a plain title.
func parseS98Tags(data []byte) (Tags, error) {
	if end := bytes.IndexByte(data, 0); end >= 0 {
		data = data[:end]
	}

	if !bytes.HasPrefix(data, s98TagIdent) {
		title, err := decodeS98String(data, japanese.ShiftJIS)
		if err != nil {
			return nil, err
		}

		if title = strings.TrimSpace(title); title == "" {
			return Tags{}, nil
		}
		return Tags{TagTitle: title}, nil
	}

	data = data[len(s98TagIdent):]

	var enc encoding.Encoding = japanese.ShiftJIS
	if bytes.HasPrefix(data, utf8BOM) {
		data = data[len(utf8BOM):]
		enc = encoding.Nop
	}

	text, err := decodeS98String(data, enc)
	if err != nil {
		return nil, err
	}

	tags := Tags{}
	for _, line := range strings.Split(text, "\n") {
		key, val, ok := strings.Cut(strings.TrimRight(line, "\r"), "=")
		if !ok {
			continue
		}

		key = strings.ToLower(strings.TrimSpace(key))
		if mapped, ok := s98TagKeys[key]; ok {
			key = mapped
		}

		if val = strings.TrimSpace(val); key != "" && val != "" {
			tags[key] = val
		}
	}

	return tags, nil
}

func decodeS98String(b []byte, enc encoding.Encoding) (string, error) {
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("failed decoding S98 tag: %w", err)
	}

	return string(out), nil
}
