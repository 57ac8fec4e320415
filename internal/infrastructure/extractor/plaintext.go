package extractor

import (
	"errors"
	"strings"
	"unicode/utf8"
)

func extractPlainText(_ string, raw []byte) (string, error) {
	raw = trimBOM(raw)
	if !utf8.Valid(raw) {
		return "", errors.New("file is not valid UTF-8 text")
	}
	return strings.ReplaceAll(string(raw), "\r\n", "\n"), nil
}

func trimBOM(raw []byte) []byte {
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		return raw[3:]
	}
	return raw
}
