package wwise

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
)

var errNoFmtChunk = errors.New("no fmt chunk")

// WemInfo describes the RIFF fmt chunk of a WEM. Nothing past the header is
// decoded.
type WemInfo struct {
	FormatTag      uint16
	NumChannels    uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	// ExtraData holds the codec specific bytes following the basic fields.
	ExtraData []byte
	// DataSize is the word-aligned length of the data chunk, or -1 when none
	// was found.
	DataSize int
}

// ReadWemInfo parses the RIFF header of a WEM blob up to its data chunk.
func ReadWemInfo(wem []byte) (*WemInfo, error) {
	r := bytes.NewReader(wem)
	parser := riff.New(r)

	id, size, err := parser.IDnSize()
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk ID and size: %w", err)
	}

	if id != riff.RiffID {
		return nil, fmt.Errorf("%s - %w", id, riff.ErrFmtNotSupported)
	}

	parser.ID = id
	parser.Size = size

	if err := binary.Read(r, binary.BigEndian, &parser.Format); err != nil {
		return nil, fmt.Errorf("failed to read format: %w", err)
	}

	if parser.Format != riff.WavFormatID {
		return nil, fmt.Errorf("%s - %w", parser.Format, riff.ErrFmtNotSupported)
	}

	var info *WemInfo

	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}

			return nil, fmt.Errorf("failed to read chunk: %w", err)
		}

		switch chunk.ID {
		case riff.FmtID:
			info, err = decodeWemFmt(chunk)
			if err != nil {
				return nil, err
			}
		case riff.DataFormatID:
			if info == nil {
				return nil, errNoFmtChunk
			}

			info.DataSize = chunk.Size

			return info, nil
		default:
			chunk.Drain()
		}
	}

	if info == nil {
		return nil, errNoFmtChunk
	}

	info.DataSize = -1

	return info, nil
}

func decodeWemFmt(chunk *riff.Chunk) (*WemInfo, error) {
	info := &WemInfo{}

	fields := []any{
		&info.FormatTag,
		&info.NumChannels,
		&info.SampleRate,
		&info.AvgBytesPerSec,
		&info.BlockAlign,
		&info.BitsPerSample,
	}

	for _, f := range fields {
		if err := chunk.ReadLE(f); err != nil {
			return nil, fmt.Errorf("failed to decode fmt chunk: %w", err)
		}
	}

	if chunk.Size > 16 {
		extra := make([]byte, chunk.Size-16)
		if err := chunk.ReadLE(extra); err != nil {
			return nil, fmt.Errorf("failed to read fmt extension data: %w", err)
		}

		info.ExtraData = extra
	}

	chunk.Drain()

	return info, nil
}

// Format returns the channel layout and sample rate.
func (w *WemInfo) Format() *audio.Format {
	if w == nil {
		return nil
	}

	return &audio.Format{
		NumChannels: int(w.NumChannels),
		SampleRate:  int(w.SampleRate),
	}
}

// Codec names the Wwise codec identified by the format tag.
func (w *WemInfo) Codec() string {
	return CodecName(w.FormatTag)
}

// CodecName names a Wwise format tag.
func CodecName(tag uint16) string {
	switch tag {
	case 0x0001, 0xFFFE:
		return "PCM"
	case 0x0002:
		return "ADPCM"
	case 0x0069:
		return "IMA ADPCM"
	case 0x0161, 0x0162:
		return "XWMA"
	case 0x0165, 0x0166, 0x0401:
		return "XMA"
	case 0x3039, 0x3040, 0x3041:
		return "Opus"
	case 0x8311:
		return "PTADPCM"
	case 0xFFF0:
		return "DSP ADPCM"
	case 0xFFFB:
		return "HEVAG"
	case 0xFFFC:
		return "ATRAC9"
	case 0xFFFF:
		return "Vorbis"
	default:
		return fmt.Sprintf("unknown (%#04x)", tag)
	}
}
