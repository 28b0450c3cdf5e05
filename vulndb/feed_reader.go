// Copyright (C) 2025 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package vulndb

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

var ErrInvalidFeed = errors.New("invalid vulnerability feed")

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// decompress detects gzip and xz compressed input by its magic bytes. Anything else is returned as is.
func decompress(r io.Reader) (io.Reader, func() error, error) {
	br := bufio.NewReader(r)
	noop := func() error { return nil }

	magic, err := br.Peek(len(xzMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, noop, errors.Wrap(err, "could not read feed")
	}

	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, noop, errors.Wrap(err, "could not create gzip reader")
		}
		return gz, gz.Close, nil
	case bytes.HasPrefix(magic, xzMagic):
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, noop, errors.Wrap(err, "could not create xz reader")
		}
		return xr, noop, nil
	default:
		return br, noop, nil
	}
}

// streamVulnerabilities decodes the vulnerabilities array of an nvd 2.0 document one entry at a time
// and hands them to f in batches. Other top level keys are skipped.
func streamVulnerabilities(r io.Reader, batchSize int, f func(batch []NVDCVE) error) error {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return errors.Wrapf(ErrInvalidFeed, "could not read document: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Wrap(ErrInvalidFeed, "document is not a json object")
	}

	found := false
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return errors.Wrapf(ErrInvalidFeed, "could not read key: %v", err)
		}
		if key, _ := keyTok.(string); key != "vulnerabilities" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return errors.Wrapf(ErrInvalidFeed, "could not skip %v: %v", keyTok, err)
			}
			continue
		}

		found = true
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrapf(ErrInvalidFeed, "could not read vulnerabilities: %v", err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			return errors.Wrap(ErrInvalidFeed, "vulnerabilities is not an array")
		}

		batch := make([]NVDCVE, 0, batchSize)
		for dec.More() {
			var v nvdVulnerability
			if err := dec.Decode(&v); err != nil {
				return errors.Wrapf(ErrInvalidFeed, "could not decode vulnerability: %v", err)
			}
			batch = append(batch, v.Cve)
			if len(batch) >= batchSize {
				if err := f(batch); err != nil {
					return err
				}
				batch = make([]NVDCVE, 0, batchSize)
			}
		}
		if _, err := dec.Token(); err != nil {
			return errors.Wrapf(ErrInvalidFeed, "could not read end of vulnerabilities: %v", err)
		}
		if len(batch) > 0 {
			if err := f(batch); err != nil {
				return err
			}
		}
	}

	if !found {
		return errors.Wrap(ErrInvalidFeed, "document has no vulnerabilities")
	}
	return nil
}
