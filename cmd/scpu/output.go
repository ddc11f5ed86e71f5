package main

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cessnao3/scpu/vm"
)

// outputFormat is a word-vector encoding chosen at the CLI boundary
// (spec §6): these are pure views over the assembled image and must
// round-trip back into the same words.
type outputFormat string

const (
	formatRaw outputFormat = "raw"
	formatHex outputFormat = "hex"
	formatC   outputFormat = "c"
)

func encodeWords(words []vm.Word, format outputFormat) ([]byte, error) {
	switch format {
	case formatRaw:
		return encodeRaw(words), nil
	case formatHex:
		return encodeHex(words), nil
	case formatC:
		return encodeCArray(words), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func encodeRaw(words []vm.Word) []byte {
	buf := make([]byte, len(words)*2)
	for i, w := range words {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(w))
	}
	return buf
}

func encodeHex(words []vm.Word) []byte {
	lines := make([]string, len(words))
	for i, w := range words {
		lines[i] = fmt.Sprintf("0x%04X", uint16(w))
	}
	return []byte(strings.Join(lines, "\n"))
}

func encodeCArray(words []vm.Word) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "size_t data_size = %d;\n", len(words))
	sb.WriteString("uint16_t data[] = {\n")
	for i, w := range words {
		sep := ","
		if i+1 == len(words) {
			sep = ""
		}
		fmt.Fprintf(&sb, "    0x%04X%s\n", uint16(w), sep)
	}
	sb.WriteString("};\n")
	return []byte(sb.String())
}

// decodeRaw reads a flat little-endian word image (spec §6's binary
// contract), the counterpart to encodeRaw.
func decodeRaw(data []byte) ([]vm.Word, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("raw image has an odd byte count: %d", len(data))
	}
	words := make([]vm.Word, len(data)/2)
	for i := range words {
		words[i] = vm.Word(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return words, nil
}
