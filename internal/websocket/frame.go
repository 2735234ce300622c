package websocket

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Binary frames carry a 4-byte big-endian header length, the JSON header,
// then the raw payload. Audio rides in the payload; everything the server
// needs to route it rides in the header.
const frameHeaderLenSize = 4

const (
	FrameTypeAudio   = "audio"
	FrameTypeEndTurn = "end_turn"
)

type FrameHeader struct {
	Type string `json:"type"`
}

func EncodeFrame(header FrameHeader, payload []byte) ([]byte, error) {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame header: %w", err)
	}

	frame := make([]byte, frameHeaderLenSize+len(headerJSON)+len(payload))
	binary.BigEndian.PutUint32(frame[:frameHeaderLenSize], uint32(len(headerJSON)))
	copy(frame[frameHeaderLenSize:], headerJSON)
	copy(frame[frameHeaderLenSize+len(headerJSON):], payload)
	return frame, nil
}

func DecodeFrame(data []byte) (*FrameHeader, []byte, error) {
	if len(data) < frameHeaderLenSize {
		return nil, nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}

	headerLen := binary.BigEndian.Uint32(data[:frameHeaderLenSize])
	if int(headerLen) > len(data)-frameHeaderLenSize {
		return nil, nil, fmt.Errorf("frame header length %d exceeds frame size", headerLen)
	}

	var header FrameHeader
	headerEnd := frameHeaderLenSize + int(headerLen)
	if err := json.Unmarshal(data[frameHeaderLenSize:headerEnd], &header); err != nil {
		return nil, nil, fmt.Errorf("failed to parse frame header: %w", err)
	}
	if header.Type == "" {
		return nil, nil, fmt.Errorf("frame header missing type")
	}

	return &header, data[headerEnd:], nil
}
