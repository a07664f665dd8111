// Package directive detects the "use client" directive of React server
// component sources.
//
// Only the first statement of a file counts: comments and blank lines are
// skipped, and the first line that still carries code is checked for one of
// the three quoted spellings of the directive. Anything later in the file is
// ignored, the same way a bundler only honours the directive at the top.
package directive

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"next-nav-server/internal/logging"
)

// MaxPrefixBytes bounds how much of a file is read. A line cut by the cap is
// evaluated as truncated.
const MaxPrefixBytes = 10000

const (
	blockOpen   = "/*"
	blockClose  = "*/"
	lineComment = "//"
)

// Literals are the accepted spellings of the directive.
var Literals = []string{`"use client"`, `'use client'`, "`use client`"}

type state int

const (
	stateCode state = iota
	stateBlockComment
)

// Opener is the part of the filesystem adapter the scanner needs.
type Opener interface {
	Open(path string) (io.ReadCloser, error)
}

// Scanner checks files for the client directive.
type Scanner struct {
	opener Opener
	logger *zap.Logger
}

// NewScanner creates a Scanner reading files through opener.
func NewScanner(opener Opener) *Scanner {
	return &Scanner{opener: opener, logger: logging.Named("directive")}
}

// Scan reports whether the first real statement of the file at path carries
// the directive. It only fails when the file cannot be opened or read.
func (s *Scanner) Scan(path string) (bool, error) {
	rc, err := s.opener.Open(path)
	if err != nil {
		return false, err
	}
	defer rc.Close()

	stmt, found, err := FirstStatement(rc)
	if err != nil {
		return false, fmt.Errorf("scan %s: %w", path, err)
	}
	client := found && HasDirective(stmt)
	s.logger.Debug("scanned file",
		zap.String("path", path),
		zap.Bool("statement_found", found),
		zap.Bool("client", client),
	)
	return client, nil
}

// ScanReader is Scan for an already open stream.
func ScanReader(r io.Reader) (bool, error) {
	stmt, found, err := FirstStatement(r)
	if err != nil {
		return false, err
	}
	return found && HasDirective(stmt), nil
}

// HasDirective reports whether stmt contains one of the directive literals.
func HasDirective(stmt string) bool {
	for _, lit := range Literals {
		if strings.Contains(stmt, lit) {
			return true
		}
	}
	return false
}

// FirstStatement returns the first line of the stream, trimmed, that is
// neither blank nor comment. found is false when the prefix holds no code.
func FirstStatement(r io.Reader) (stmt string, found bool, err error) {
	sc := bufio.NewScanner(io.LimitReader(r, MaxPrefixBytes))
	sc.Buffer(make([]byte, 0, 4096), MaxPrefixBytes+1)
	sc.Split(splitLines)

	st := stateCode
	for sc.Scan() {
		var code string
		st, code = step(st, sc.Text())
		if code != "" {
			return code, true, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", false, err
	}
	return "", false, nil
}

// step consumes one line in state st and returns the next state together with
// the line's code, trimmed. code is empty when the line holds none.
func step(st state, line string) (state, string) {
	if st == stateBlockComment {
		end := strings.Index(line, blockClose)
		if end < 0 {
			return stateBlockComment, ""
		}
		// Whatever follows the terminator is read as a line of its own.
		return step(stateCode, line[end+len(blockClose):])
	}

	if open := strings.Index(line, blockOpen); open >= 0 {
		rel := strings.Index(line[open:], blockClose)
		if rel < 0 {
			// Code before an unterminated opener is dropped with the rest of the line.
			return stateBlockComment, ""
		}
		end := open + rel
		rest := line[:open] + line[end+len(blockClose):]
		return stateCode, strings.TrimSpace(rest)
	}

	if i := strings.Index(line, lineComment); i >= 0 {
		line = line[:i]
	}
	return stateCode, strings.TrimSpace(line)
}

// splitLines is bufio.ScanLines that also accepts a lone '\r' as a line end.
func splitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// A '\r' at the end of the buffer may be the first half of "\r\n".
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
