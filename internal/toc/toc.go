// Package toc resolves the table-of-contents sub-table within a CPK's
// master UTF table and reads its rows into member entries.
package toc

import (
	"fmt"
	"os"

	"github.com/ievr/ievrtool/internal/cpkview"
	"github.com/ievr/ievrtool/internal/utf"
)

// StringPool interns directory/user-string cells so that names
// recurring across thousands of members share one allocation.
type StringPool struct {
	cache map[string]string
}

// NewStringPool returns an empty interning table for one container.
func NewStringPool() *StringPool {
	return &StringPool{cache: make(map[string]string)}
}

func (p *StringPool) intern(s string) string {
	if v, ok := p.cache[s]; ok {
		return v
	}
	p.cache[s] = s
	return s
}

// Resolver walks master tables to locate and parse TOC sub-tables. It
// holds no state of its own: the caller passes Resolve the string pool
// for the container being resolved, and a StringPool is not safe for
// concurrent use (the single extractor goroutine, §4.G Stage 2, is its
// only user).
type Resolver struct{}

// NewResolver returns a TOC resolver.
func NewResolver() *Resolver { return &Resolver{} }

// locateOffsets reads the TocOffset/ContentOffset columns out of the
// master table and returns (tocOffset, contentOffset) per §4.D.
func locateOffsets(master *utf.Table) (tocOffset, contentOffset int64, err error) {
	const invalid = -1
	tocCol, contentCol := invalid, invalid
	for i, c := range master.Columns {
		switch c.Name {
		case "TocOffset":
			tocCol = i
		case "ContentOffset":
			contentCol = i
		}
	}
	if tocCol == invalid {
		return 0, 0, fmt.Errorf("toc: TocOffset column not found in master table")
	}
	if contentCol == invalid {
		return 0, 0, fmt.Errorf("toc: ContentOffset column not found in master table")
	}

	var tocVal, contentVal int64
	var tocFound, contentFound bool
	rowPtr := int(master.RowsOffset)

	for i, c := range master.Columns {
		if i == tocCol || i == contentCol {
			val, err := readHeaderRowCell(master, c, rowPtr)
			if err != nil {
				return 0, 0, err
			}
			if i == tocCol {
				tocVal, tocFound = val, true
			} else {
				contentVal, contentFound = val, true
			}
		}
		if tocFound && contentFound {
			break
		}
		if c.IsRowStorage {
			rowPtr += c.ValueLen()
		}
	}
	if !tocFound || !contentFound {
		return 0, 0, fmt.Errorf("toc: could not resolve TocOffset/ContentOffset values")
	}

	content := contentVal
	if tocVal < content {
		content = tocVal
	}
	return tocVal, content, nil
}

// readHeaderRowCell reads a single column's numeric value from either
// the live row cursor (row storage) or its cached default.
func readHeaderRowCell(t *utf.Table, c utf.Column, rowPtr int) (int64, error) {
	if c.IsRowStorage {
		n := c.ValueLen()
		if rowPtr+n > len(t.Body) {
			return 0, fmt.Errorf("toc: row cell at %#x exceeds table body", rowPtr)
		}
		return c.ReadNumber(t.Body[rowPtr : rowPtr+n]), nil
	}
	if c.HasDefault {
		return c.ReadNumber(c.Default), nil
	}
	return 0, fmt.Errorf("toc: column %q is absent (no storage, no default)", c.Name)
}

// Resolve parses the master table at offset 0 of view, locates the
// TOC sub-table, and reads every row into a File, sharing one
// reference to view per File per §3.
func (r *Resolver) Resolve(view *cpkview.View, pool *StringPool) ([]*File, error) {
	master, err := utf.Parse(view.Bytes(), 0)
	if err != nil {
		return nil, fmt.Errorf("toc: parse master table: %w", err)
	}
	if master.EncryptedVariant {
		// Encrypted-UTF is detected, not decoded (§4.C.2): skip this
		// container rather than aborting the whole run. utf.Parse has
		// already logged the condition to stderr.
		return nil, nil
	}

	tocOffset, contentOffset, err := locateOffsets(master)
	if err != nil {
		return nil, err
	}

	tocTable, err := utf.Parse(view.Bytes(), int(tocOffset))
	if err != nil {
		return nil, fmt.Errorf("toc: parse TOC sub-table at %#x: %w", tocOffset, err)
	}
	if tocTable.EncryptedVariant {
		return nil, nil
	}

	return readRows(tocTable, contentOffset, view, pool)
}

// columnIndex names the six member-row columns named in §4.D.
type columnIndex struct {
	dirName, fileName, fileSize, extractSize, fileOffset, userString int
}

func findColumns(cols []utf.Column) columnIndex {
	const invalid = -1
	idx := columnIndex{invalid, invalid, invalid, invalid, invalid, invalid}
	for i, c := range cols {
		switch c.Name {
		case "DirName":
			idx.dirName = i
		case "FileName":
			idx.fileName = i
		case "FileSize":
			idx.fileSize = i
		case "ExtractSize":
			idx.extractSize = i
		case "FileOffset":
			idx.fileOffset = i
		case "UserString":
			idx.userString = i
		}
	}
	return idx
}

func readRows(t *utf.Table, contentOffset int64, view *cpkview.View, pool *StringPool) ([]*File, error) {
	idx := findColumns(t.Columns)
	if idx.fileName == invalidIdx || idx.fileOffset == invalidIdx || idx.fileSize == invalidIdx {
		return nil, fmt.Errorf("toc: TOC table is missing required FileName/FileOffset/FileSize columns")
	}

	files := make([]*File, 0, t.RowCount)

	for row := uint32(0); row < t.RowCount; row++ {
		rowPtr := int(t.RowsOffset) + int(row)*int(t.RowSizeBytes)
		f := &File{view: view.Clone()}

		hasExtractSize := false

		cursor := rowPtr
		for i, c := range t.Columns {
			var cell []byte
			if c.IsRowStorage {
				n := c.ValueLen()
				if cursor+n > len(t.Body) {
					return nil, fmt.Errorf("toc: row %d col %d cell out of bounds", row, i)
				}
				cell = t.Body[cursor : cursor+n]
				cursor += n
			} else if c.HasDefault {
				cell = c.Default
			} else {
				continue
			}

			switch i {
			case idx.dirName:
				off := utf.StringOffset(cell)
				s, err := stringFromPool(t, off)
				if err != nil {
					return nil, err
				}
				dir := pool.intern(s)
				f.Directory = &dir
			case idx.fileName:
				off := utf.StringOffset(cell)
				s, err := stringFromPool(t, off)
				if err != nil {
					return nil, err
				}
				f.FileName = s
			case idx.fileSize:
				f.FileSize = uint64(c.ReadNumber(cell))
			case idx.extractSize:
				f.ExtractSize = uint64(c.ReadNumber(cell))
				hasExtractSize = true
			case idx.fileOffset:
				f.FileOffset = uint64(c.ReadNumber(cell)) + uint64(contentOffset)
			case idx.userString:
				off := utf.StringOffset(cell)
				s, err := stringFromPool(t, off)
				if err != nil {
					return nil, err
				}
				us := pool.intern(s)
				f.UserString = &us
			}
		}

		if !hasExtractSize {
			f.ExtractSize = f.FileSize
		}
		if f.FileSize > f.ExtractSize {
			fmt.Fprintf(os.Stderr, "warning: %s: file_size (%d) exceeds extract_size (%d); CPK entry may be malformed\n",
				f.FileName, f.FileSize, f.ExtractSize)
		}

		files = append(files, f)
	}
	return files, nil
}

const invalidIdx = -1

func stringFromPool(t *utf.Table, offset uint32) (string, error) {
	if int(t.StringPoolOffset)+int(offset) > len(t.Body) {
		return "", fmt.Errorf("toc: string offset %#x exceeds table body", offset)
	}
	pool := t.Body[t.StringPoolOffset:]
	end := offset
	for int(end) < len(pool) && pool[end] != 0 {
		end++
	}
	return string(pool[offset:end]), nil
}
