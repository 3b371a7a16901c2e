package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// decodeJSONC strips comments and trailing commas, then decodes strictly.
func decodeJSONC(content string, payload *fileConfig) error {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(payload); err != nil {
		return locateJSONError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return locateJSONError(normalized, err)
	}
	return nil
}

// normalizeJSONC blanks comments and trailing commas with spaces. Every
// byte keeps its offset, so decoder errors still point at the source line.
func normalizeJSONC(content string) (string, error) {
	out := []byte(content)
	pendingComma := -1

	blank := func(from, to int) {
		for k := from; k < to; k++ {
			if out[k] != '\n' && out[k] != '\r' && out[k] != '\t' {
				out[k] = ' '
			}
		}
	}

	for i := 0; i < len(out); i++ {
		switch ch := out[i]; {
		case ch == '"':
			end, err := skipJSONString(out, i)
			if err != nil {
				return "", err
			}
			pendingComma = -1
			i = end
		case ch == '/' && i+1 < len(out) && out[i+1] == '/':
			end := i
			for end < len(out) && out[end] != '\n' && out[end] != '\r' {
				end++
			}
			blank(i, end)
			i = end - 1
		case ch == '/' && i+1 < len(out) && out[i+1] == '*':
			closing := strings.Index(string(out[i+2:]), "*/")
			if closing < 0 {
				return "", errors.New("unterminated block comment in JSONC")
			}
			end := i + 2 + closing + 2
			blank(i, end)
			i = end - 1
		case ch == ',':
			pendingComma = i
		case ch == '}' || ch == ']':
			if pendingComma >= 0 {
				out[pendingComma] = ' '
			}
			pendingComma = -1
		case ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t':
		default:
			pendingComma = -1
		}
	}

	return string(out), nil
}

// skipJSONString returns the index of the quote closing the string that
// opens at start. An unterminated string is left for the decoder to report.
func skipJSONString(content []byte, start int) (int, error) {
	for i := start + 1; i < len(content); i++ {
		switch content[i] {
		case '\\':
			i++
		case '"':
			return i, nil
		}
	}
	return len(content) - 1, nil
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

// locateJSONError prefixes syntax and type errors with a line and column.
func locateJSONError(content string, err error) error {
	var offset int64 = -1
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset < 0 {
		return err
	}
	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// offsetToLineCol converts a decoder offset (bytes read, so one past the
// offending byte) into a 1-based line and column.
func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	limit := min(int(offset), len(content))
	prefix := content[:limit-1]
	line := 1 + strings.Count(prefix, "\n")
	col := len(prefix) - strings.LastIndex(prefix, "\n")
	return line, col
}
