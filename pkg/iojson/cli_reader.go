package iojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// ErrNoInput is returned when neither a file nor piped stdin was provided.
var ErrNoInput = errors.New("no input provided (stdin is a terminal); use -f flag or pipe input")

// source resolves the -f flag, falling back to piped stdin.
type source struct {
	fileFlagValue string
	stdin         *os.File
}

func (s *source) flag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       usage,
		Destination: &s.fileFlagValue,
	}
}

func (s *source) open() (io.ReadCloser, error) {
	if s.fileFlagValue != "" {
		f, err := os.Open(s.fileFlagValue)
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}
		return f, nil
	}

	stdin := s.stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	if term.IsTerminal(int(stdin.Fd())) {
		return nil, ErrNoInput
	}
	return io.NopCloser(stdin), nil
}

// FileReader decodes a JSON document of type T from -f or stdin.
type FileReader[T any] struct {
	source
}

func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return fr.flag("path to JSON file (reads from stdin if not provided)")
}

func (fr *FileReader[T]) Read() (T, error) {
	var input T

	r, err := fr.open()
	if err != nil {
		return input, err
	}
	defer func() { _ = r.Close() }()

	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return input, fmt.Errorf("decode JSON: %w", err)
	}

	return input, nil
}

// TextReader reads free-form text from -f or stdin.
type TextReader struct {
	source
}

func (tr *TextReader) Flag() *cli.StringFlag {
	return tr.flag("path to a text file (reads from stdin if not provided)")
}

// Set reports whether -f was given.
func (tr *TextReader) Set() bool {
	return tr.fileFlagValue != ""
}

// Read returns the trimmed input.
func (tr *TextReader) Read() (string, error) {
	r, err := tr.open()
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
