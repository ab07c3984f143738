package cdm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseKVN reads a message in key-value notation. Keys and values are
// whitespace-insensitive around the equals sign, COMMENT lines are
// ignored, and bracketed units are stripped. Object scope opens at
// "OBJECT = OBJECT1" or "OBJECT = OBJECT2"; object-scoped keys live in
// per-object maps so they can never collide with header keys.
func ParseKVN(r io.Reader) (*CDM, error) {
	header := map[string]fieldValue{}
	objects := [2]map[string]fieldValue{}
	current := -1 // -1 means header scope

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "COMMENT") {
			continue
		}

		key, rawValue, found := strings.Cut(line, "=")
		if !found {
			return nil, &ParseError{Field: "line", Msg: fmt.Sprintf("line %d: not a KEY = value pair: %q", lineNo, line)}
		}
		key = strings.TrimSpace(key)
		fv := splitUnit(rawValue)

		if key == "OBJECT" {
			switch fv.value {
			case "OBJECT1":
				current = 0
			case "OBJECT2":
				current = 1
			default:
				return nil, &ParseError{Field: "OBJECT", Msg: fmt.Sprintf("line %d: unknown object scope %q", lineNo, fv.value)}
			}
			if objects[current] == nil {
				objects[current] = map[string]fieldValue{}
			}
			continue
		}

		if current >= 0 {
			objects[current][key] = fv
		} else {
			header[key] = fv
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading KVN message: %w", err)
	}

	if objects[0] == nil {
		return nil, &ParseError{Field: "OBJECT1", Msg: "missing"}
	}
	if objects[1] == nil {
		return nil, &ParseError{Field: "OBJECT2", Msg: "missing"}
	}

	return buildCDM(header, objects)
}
