package metadata

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TrackMetadata represents the song being played.
type TrackMetadata struct {
	File     string `json:"file"`
	Format   string `json:"format"`
	Title    string `json:"title"`
	Game     string `json:"game,omitempty"`
	System   string `json:"system,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Date     string `json:"date,omitempty"`
	Duration int64  `json:"duration_ms"`
	Position int64  `json:"position_ms"`
	Looped   bool   `json:"looped"`
	MaxLoops uint32 `json:"max_loops"`
	Playing  bool   `json:"playing"`

	Timestamp time.Time `json:"timestamp"`
}

func NewTrackMetadata() *TrackMetadata {
	return &TrackMetadata{
		Timestamp: time.Now(),
	}
}

// ToJSONFormat converts metadata to a single JSON line.
func (tm *TrackMetadata) ToJSONFormat() []byte {
	data, _ := json.Marshal(tm)
	return append(data, '\n')
}

// ToXMLFormat converts metadata to shairport-sync style items with hex type/code.
func (tm *TrackMetadata) ToXMLFormat() []byte {
	var result []byte

	encodeItem := func(itemType, code, data string) []byte {
		item := fmt.Sprintf("<item><type>%08x</type><code>%08x</code><length>%x</length><data encoding=\"base64\">%s</data></item>\n",
			stringToUint32(itemType), stringToUint32(code), len(data), base64.StdEncoding.EncodeToString([]byte(data)))
		return []byte(item)
	}

	if tm.Title != "" {
		result = append(result, encodeItem("core", "minm", tm.Title)...)
	}
	if tm.Artist != "" {
		result = append(result, encodeItem("core", "asar", tm.Artist)...)
	}
	if tm.Game != "" {
		result = append(result, encodeItem("core", "asal", tm.Game)...)
	}
	if tm.Format != "" {
		result = append(result, encodeItem("core", "asfm", tm.Format)...)
	}

	playState := "stop"
	if tm.Playing {
		playState = "play"
	} else if tm.Position > 0 {
		playState = "pause"
	}
	result = append(result, encodeItem("ssnc", "pply", playState)...)

	// whole seconds
	result = append(result, encodeItem("ssnc", "ppos", strconv.FormatInt(tm.Position/1000, 10))...)
	result = append(result, encodeItem("ssnc", "plen", strconv.FormatInt(tm.Duration/1000, 10))...)

	return result
}

func stringToUint32(s string) uint32 {
	if len(s) != 4 {
		return 0
	}
	return uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3])
}

// UpdatePosition updates only the position and timestamp
func (tm *TrackMetadata) UpdatePosition(position int64) {
	tm.Position = position
	tm.Timestamp = time.Now()
}

// UpdatePlayingState updates only the playing state and timestamp
func (tm *TrackMetadata) UpdatePlayingState(playing bool) {
	tm.Playing = playing
	tm.Timestamp = time.Now()
}
