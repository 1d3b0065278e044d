package engine

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Sync frames are length-prefixed JSON: a big-endian uint32 byte count
// followed by the encoded frame. The handshake is two frames: the client
// sends hello with its node ID, the server answers root with the
// authoritative root ID.
const maxFrameSize = 1 << 20

const (
	frameHello = "hello"
	frameRoot  = "root"
)

type frame struct {
	Type   string `json:"type"`
	NodeID string `json:"nodeId,omitempty"`
	RootID string `json:"rootId,omitempty"`
}

func writeFrame(w io.Writer, f frame) error {
	body, err := json.Marshal(f)
	if err != nil {
		return err
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func readFrame(r io.Reader) (frame, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return frame{}, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 || n > maxFrameSize {
		return frame{}, fmt.Errorf("engine: frame size %d out of range", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return frame{}, err
	}
	var f frame
	if err := json.Unmarshal(body, &f); err != nil {
		return frame{}, fmt.Errorf("engine: decode frame: %w", err)
	}
	return f, nil
}
