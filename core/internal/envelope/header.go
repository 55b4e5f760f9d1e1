package envelope

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
)

// Header table slots, in schema order.
const (
	slotVersion = iota
	slotCompression
	slotEntryCount
	slotRawSize
	slotDigest
	numSlots
)

// header mirrors the Header table in schema/header.fbs.
type header struct {
	version     uint16
	compression Compression
	entryCount  uint32
	rawSize     uint64
	digest      string
}

func (h *header) build() []byte {
	b := flatbuffers.NewBuilder(96)
	dg := b.CreateString(h.digest)
	b.StartObject(numSlots)
	b.PrependUint64Slot(slotRawSize, h.rawSize, 0)
	b.PrependUOffsetTSlot(slotDigest, dg, 0)
	b.PrependUint32Slot(slotEntryCount, h.entryCount, 0)
	b.PrependUint16Slot(slotVersion, h.version, 0)
	b.PrependByteSlot(slotCompression, byte(h.compression), 0)
	b.Finish(b.EndObject())
	return b.FinishedBytes()
}

// parseHeader decodes a Header table. FlatBuffers accessors panic on
// malformed input; the panic is converted into an error.
func parseHeader(data []byte) (h header, err error) {
	defer func() {
		if r := recover(); r != nil {
			h = header{}
			err = fmt.Errorf("parse envelope header: %v", r)
		}
	}()
	if len(data) < flatbuffers.SizeUOffsetT {
		return header{}, fmt.Errorf("envelope header is %d bytes", len(data))
	}
	tab := flatbuffers.Table{Bytes: data, Pos: flatbuffers.GetUOffsetT(data)}
	field := func(slot int) flatbuffers.UOffsetT {
		o := flatbuffers.UOffsetT(tab.Offset(flatbuffers.VOffsetT(4 + 2*slot)))
		if o == 0 {
			return 0
		}
		return o + tab.Pos
	}

	if o := field(slotVersion); o != 0 {
		h.version = tab.GetUint16(o)
	}
	if o := field(slotCompression); o != 0 {
		h.compression = Compression(tab.GetByte(o))
	}
	if o := field(slotEntryCount); o != 0 {
		h.entryCount = tab.GetUint32(o)
	}
	if o := field(slotRawSize); o != 0 {
		h.rawSize = tab.GetUint64(o)
	}
	if o := field(slotDigest); o != 0 {
		h.digest = tab.String(o)
	}
	return h, nil
}
