// Package shell turns raw input lines into argument vectors.
//
// Word splitting and quote removal follow the POSIX rules in
// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html
// section 2.2 (Quoting): single quotes preserve every character literally,
// double quotes group words and honour backslash escapes of '"' and '\', and
// an unquoted backslash escapes the next character. No expansion is performed.
package shell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

var (
	// ErrUnclosedQuote is returned when a quote isn't terminated by the end of
	// the line.
	ErrUnclosedQuote = errors.New("unterminated quote")

	// ErrTrailingEscape is returned when the line ends in a bare backslash.
	ErrTrailingEscape = errors.New("no character to escape")
)

// ParseError is returned when a line has malformed quoting.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", strings.ToLower(e.Err.Error()))
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func classify(err error) error {
	switch err {
	case shellquote.UnterminatedSingleQuoteError, shellquote.UnterminatedDoubleQuoteError:
		return ErrUnclosedQuote
	case shellquote.UnterminatedEscapeError:
		return ErrTrailingEscape
	default:
		return err
	}
}

// Tokenize splits line into words. Blank lines produce no words and no error.
// A quoted empty string ("" or '') is kept as an empty word.
func Tokenize(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}

	tokens, err := shellquote.Split(line)
	if err != nil {
		return nil, &ParseError{Line: line, Err: classify(err)}
	}
	return tokens, nil
}
