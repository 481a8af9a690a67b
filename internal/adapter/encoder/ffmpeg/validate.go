package ffmpeg

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Validate checks that data is an MP4 file carrying a video and an audio track.
func Validate(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty file")
	}
	file, err := mp4.DecodeFile(bytes.NewReader(data), mp4.WithDecodeMode(mp4.DecModeLazyMdat))
	if err != nil {
		return fmt.Errorf("decoding MP4: %w", err)
	}
	if file.Moov == nil {
		return errors.New("invalid MP4: missing moov box")
	}

	var video, audio int
	for _, trak := range file.Moov.Traks {
		if trak == nil || trak.Mdia == nil || trak.Mdia.Hdlr == nil {
			continue
		}
		switch trak.Mdia.Hdlr.HandlerType {
		case "vide":
			video++
		case "soun":
			audio++
		}
	}
	if video == 0 {
		return errors.New("invalid MP4: no video track")
	}
	if audio == 0 {
		return errors.New("invalid MP4: no audio track")
	}
	return nil
}
