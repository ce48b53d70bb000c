// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parsers

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/docingest/core"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Field names produced by File in addition to the Text fields.
const (
	FieldPath     = "path"
	FieldName     = "name"
	FieldExt      = "ext"
	FieldSize     = "size"
	FieldModified = "modified"
	FieldDigest   = "digest"
)

// DefaultMaxFileBytes is the default size limit for File.
const DefaultMaxFileBytes = 16 << 20

// FileOption configures the File parser.
type FileOption func(*fileParser) error

type fileParser struct {
	baseDir  string
	maxBytes int64
	encoding encoding.Encoding
}

// WithBaseDir restricts File to paths inside dir. Relative items are resolved
// against dir.
func WithBaseDir(dir string) FileOption {
	return func(p *fileParser) error {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolve base directory: %w", err)
		}
		p.baseDir = abs
		return nil
	}
}

// WithMaxBytes sets the largest file File will read.
// Default is DefaultMaxFileBytes.
func WithMaxBytes(n int64) FileOption {
	return func(p *fileParser) error {
		if n < 1 {
			return fmt.Errorf("max bytes must be positive, got %d", n)
		}
		p.maxBytes = n
		return nil
	}
}

// WithEncoding sets the character encoding of the files, by its WHATWG name
// such as "utf-8", "windows-1251" or "iso-8859-1".
// Default is UTF-8. A byte order mark always takes precedence.
func WithEncoding(name string) FileOption {
	return func(p *fileParser) error {
		enc, err := htmlindex.Get(name)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrUnknownEncoding, name)
		}
		p.encoding = enc
		return nil
	}
}

// File returns a parser for local file paths. The result carries the decoded
// text with the Text statistics, the file's path, name, extension, size,
// modification time and a BLAKE2b-256 digest of the raw bytes.
func File(opts ...FileOption) (core.ParserFunc, error) {
	p := &fileParser{
		maxBytes: DefaultMaxFileBytes,
		encoding: unicode.UTF8,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p.parse, nil
}

func (p *fileParser) parse(item core.SourceItem) (core.Result, error) {
	raw, err := itemText(item)
	if err != nil {
		return nil, err
	}
	path, err := p.resolve(raw)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedItem, path)
	}
	if info.Size() > p.maxBytes {
		return nil, fmt.Errorf("%w: %s has %d bytes, limit %d", ErrFileTooLarge, path, info.Size(), p.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(f, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, fmt.Errorf("%w: %s grew past limit %d", ErrFileTooLarge, path, p.maxBytes)
	}

	text, _, err := transform.Bytes(unicode.BOMOverride(p.encoding.NewDecoder()), data)
	if err != nil {
		return nil, fmt.Errorf("decode file: %w", err)
	}

	h, err := blake2b.New(32, nil)
	if err != nil {
		return nil, err
	}
	h.Write(data)

	result := textStats(strings.TrimSpace(string(text)))
	result[FieldPath] = path
	result[FieldName] = filepath.Base(path)
	result[FieldExt] = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	result[FieldSize] = info.Size()
	result[FieldModified] = info.ModTime()
	result[FieldDigest] = hex.EncodeToString(h.Sum(nil))
	return result, nil
}

func (p *fileParser) resolve(path string) (string, error) {
	if p.baseDir == "" {
		return filepath.Abs(path)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.baseDir, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(p.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBaseDir, path)
	}
	return path, nil
}
