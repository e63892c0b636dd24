// Package jsonl persists the local ledger in a folder of JSON Lines files,
// human readable and git friendly.
//
// Every read loads the file from disk, so that several processes can share a
// ledger folder. Every change takes an exclusive lock on a ".lock" file next
// to the data file, reads the records again, then rewrites the file: records
// are encoded one per line, sorted by id, into a temporary file that then
// replaces the original. A reader never sees a half written file.
package jsonl

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/etnz/pocket"
)

// line is a non empty line of a jsonl file, with its position for error messages.
type line struct {
	filename string
	i        int
	txt      []byte
}

// readLines returns the non empty lines of filename. A missing file has no lines.
func readLines(filename string) ([]line, error) {
	f, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %q for reading: %w", pocket.ErrStorageFailure, filename, err)
	}
	defer f.Close()

	var list []line
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	i := 0
	for scanner.Scan() {
		i++
		txt := scanner.Bytes()
		if strings.TrimSpace(string(txt)) == "" {
			continue
		}
		list = append(list, line{filename, i, slices.Clone(txt)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: cannot read %q: %w", pocket.ErrStorageFailure, filename, err)
	}
	return list, nil
}

// decode reads every line of filename into a T.
func decode[T any](filename string) ([]T, error) {
	lines, err := readLines(filename)
	if err != nil {
		return nil, err
	}
	list := make([]T, 0, len(lines))
	for _, l := range lines {
		var v T
		if err := json.Unmarshal(l.txt, &v); err != nil {
			return nil, fmt.Errorf("%w: parse error %s:%v: %w", pocket.ErrStorageFailure, l.filename, l.i, err)
		}
		list = append(list, v)
	}
	return list, nil
}

// encode replaces filename by the records, one json object per line, in the
// order of ids.
func encode[T any](filename string, records map[string]T) error {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("%w: cannot create folder for %q: %w", pocket.ErrStorageFailure, filename, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("%w: cannot create temporary file for %q: %w", pocket.ErrStorageFailure, filename, err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	w := bufio.NewWriter(tmp)
	for _, id := range ids {
		data, err := json.Marshal(records[id])
		if err != nil {
			tmp.Close()
			return fmt.Errorf("cannot encode record %q: %w", id, err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: cannot write %q: %w", pocket.ErrStorageFailure, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: cannot close %q: %w", pocket.ErrStorageFailure, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("%w: cannot replace %q: %w", pocket.ErrStorageFailure, filename, err)
	}
	return nil
}
