package internal

import (
	"encoding/binary"
	"fmt"
)

var parquetMagic = []byte("PAR1")

func Int32Decoder(data []byte) (int32, []byte) {
	return int32(binary.LittleEndian.Uint32(data)), data[4:]
}

// ファイル末尾8バイト(フッター長とマジックナンバー)からフッター長を取り出す
func decodeFooterTail(tail []byte) (int64, error) {
	if len(tail) != 8 {
		return 0, fmt.Errorf("footer tail must be 8 bytes, got %d", len(tail))
	}

	footerLen, magic := Int32Decoder(tail)
	if string(magic) != string(parquetMagic) {
		return 0, fmt.Errorf("invalid magic number %q", magic)
	}
	if footerLen <= 0 {
		return 0, fmt.Errorf("invalid footer length %d", footerLen)
	}

	return int64(footerLen), nil
}

// 4バイトの長さを前置したレベルのデータを取り出す(データページ v1)
func decodeLevels(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("levels too short: %d bytes", len(data))
	}

	n, data := Int32Decoder(data)
	if n < 0 || int(n) > len(data) {
		return nil, nil, fmt.Errorf("invalid levels length %d", n)
	}
	return data[:n], data[n:], nil
}

// RLE/ビットパッキングのハイブリッド形式を最大 limit 個までデコードする
func readRLE(data []byte, bitWidth uint32, limit int64, callback func(uint32, uint64)) error {
	if bitWidth == 0 || bitWidth > 32 {
		return fmt.Errorf("unsupported bit width %d", bitWidth)
	}

	mask := uint32(1<<bitWidth) - 1
	byteWidth := int((bitWidth + 7) / 8)
	var (
		header  uint64
		emitted int64
		err     error
	)

	for len(data) > 0 && emitted < limit {
		header, data, err = readULEB128(data)
		if err != nil {
			return err
		}
		isBitPacked := (header & 0x01) == 1
		header >>= 1

		if !isBitPacked {
			if len(data) < byteWidth {
				return fmt.Errorf("truncated rle run")
			}

			var runLenValue uint32
			for i := 0; i < byteWidth; i++ {
				runLenValue |= uint32(data[i]) << (i * 8)
			}
			data = data[byteWidth:]

			run := min(int64(header), limit-emitted)
			callback(runLenValue, uint64(run))
			emitted += run
			continue
		}

		// 8個単位のグループ。末尾の詰め物は limit で切り捨てる
		var unpacked, unpackedBits uint32
		for i := header * 8; i > 0 && emitted < limit; {
			if len(data) == 0 {
				return fmt.Errorf("truncated bit-packed run")
			}
			unpacked |= uint32(data[0]) << unpackedBits
			unpackedBits += 8
			data = data[1:]

			for ; unpackedBits >= bitWidth && i > 0 && emitted < limit; unpackedBits -= bitWidth {
				callback(unpacked&mask, 1)
				unpacked >>= bitWidth
				emitted++
				i--
			}
		}
	}

	return nil
}

func readULEB128(data []byte) (uint64, []byte, error) {
	var ret uint64

	for i := 0; ; i++ {
		if len(data) == 0 || i > 9 {
			return 0, nil, fmt.Errorf("invalid uleb128")
		}
		b := data[0]
		data = data[1:]
		ret |= uint64(b&0x7F) << uint(i*7)
		if b&0x80 == 0 {
			break
		}
	}

	return ret, data, nil
}
