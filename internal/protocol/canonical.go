package protocol

import (
	"encoding/binary"
)

const eventDomainV0 = "manastr/event/v0"

// canonicalBytes builds the fixed-layout byte sequence that both the event
// id and the signature are computed over:
//
//	DOMAIN || 0x00 || pubkey || created_at_u64le || kind_u16le || tags || content_len_u32le || content
//
// Tags are encoded as a u32le count followed by u32le-length-prefixed (key,
// value) pairs in the order given — callers must not reorder tags after
// signing. content follows its u32le length verbatim, as already-canonical
// JSON bytes; re-encoding
// it here would risk key-order nondeterminism across json.Marshal calls, so
// every caller is responsible for producing stable JSON (Go's encoding/json
// already sorts struct fields by declaration order, which this codec relies
// on implicitly by never re-marshaling on the hot path).
func canonicalBytes(pubkey []byte, createdAt int64, kind Kind, tags []Tag, content []byte) []byte {
	out := []byte(eventDomainV0)
	out = append(out, 0)
	out = append(out, pubkey...)
	out = append(out, u64le(uint64(createdAt))...)
	out = append(out, u16le(uint16(kind))...)
	out = append(out, u32le(uint32(len(tags)))...)
	for _, t := range tags {
		out = append(out, u32le(uint32(len(t[0])))...)
		out = append(out, t[0]...)
		out = append(out, u32le(uint32(len(t[1])))...)
		out = append(out, t[1]...)
	}
	out = append(out, u32le(uint32(len(content)))...)
	out = append(out, content...)
	return out
}

func u16le(x uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, x)
	return b
}

func u32le(x uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, x)
	return b
}

func u64le(x uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, x)
	return b
}
