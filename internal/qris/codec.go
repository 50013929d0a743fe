package qris

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedCode is returned when a TLV field declares a length that
// runs past the end of the input.
var ErrMalformedCode = errors.New("malformed qris code")

// TagOrder is the canonical EMV tag order used when rebuilding a code.
// Tags not listed here are dropped on re-encode.
var TagOrder = []string{"00", "01", "26", "51", "52", "53", "54", "55", "56", "57", "58", "59", "60", "61", "62", "63"}

const (
	tagPointOfInitiation = "01"
	tagTransactionAmount = "54"

	pointOfInitiationDynamic = "12"

	crcTagPrefix = "6304"
)

// Parse scans a QRIS string as TLV fields, excluding the trailing
// 4-character CRC. Each field is a 2-character tag, a 2-digit decimal
// length and that many characters of value.
func Parse(code string) (map[string]string, error) {
	fields := make(map[string]string)
	i := 0
	for i < len(code)-4 {
		tag := code[i : i+2]
		length, err := strconv.Atoi(code[i+2 : i+4])
		if err != nil || length < 0 {
			return nil, fmt.Errorf("%w: invalid length for tag %s at offset %d", ErrMalformedCode, tag, i)
		}
		if i+4+length > len(code) {
			return nil, fmt.Errorf("%w: tag %s declares length %d past end of input", ErrMalformedCode, tag, length)
		}
		fields[tag] = code[i+4 : i+4+length]
		i += 4 + length
	}
	return fields, nil
}

// Build re-assembles TLV fields strictly in tagOrder, skipping tags
// absent from the map. The CRC is not emitted.
func Build(fields map[string]string, tagOrder []string) string {
	var b strings.Builder
	for _, tag := range tagOrder {
		value, ok := fields[tag]
		if !ok {
			continue
		}
		b.WriteString(tag)
		b.WriteString(fmt.Sprintf("%02d", len(value)))
		b.WriteString(value)
	}
	return b.String()
}

// Checksum computes CRC-16/CCITT-FALSE over data and renders it as
// 4 uppercase hex digits.
func Checksum(data string) string {
	crc := 0xFFFF
	for i := 0; i < len(data); i++ {
		crc ^= int(data[i]) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc = crc << 1
			}
			crc &= 0xFFFF
		}
	}
	return fmt.Sprintf("%04X", crc)
}

// MakeDynamic converts a static QRIS code into a dynamic one carrying
// the given amount. The point-of-initiation tag is switched from static
// to dynamic and the transaction-amount tag is set before re-encoding
// in canonical tag order and appending a fresh CRC.
func MakeDynamic(staticCode string, amount int64) (string, error) {
	fields, err := Parse(staticCode)
	if err != nil {
		return "", err
	}

	fields[tagPointOfInitiation] = pointOfInitiationDynamic
	fields[tagTransactionAmount] = strconv.FormatInt(amount, 10)

	code := Build(fields, TagOrder)
	code += crcTagPrefix
	return code + Checksum(code), nil
}

// IsValid reports whether the trailing 4 characters of code match the
// CRC of everything before them. It never returns an error; codes
// shorter than 8 characters are simply invalid.
func IsValid(code string) bool {
	if len(code) < 8 {
		return false
	}
	body := code[:len(code)-4]
	provided := code[len(code)-4:]
	return strings.EqualFold(provided, Checksum(body))
}
