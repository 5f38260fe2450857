package fec

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// LoadReliabilityOrder reads a binary file of little-endian int64 positions, most reliable first.
func LoadReliabilityOrder(path string) ([]int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reliability order: %w", err)
	}
	if len(b)%8 != 0 {
		return nil, errors.New("reliability order file size is not a multiple of 8")
	}
	vals64 := make([]int64, len(b)/8)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, vals64); err != nil {
		return nil, fmt.Errorf("decode reliability order: %w", err)
	}
	order := make([]int, len(vals64))
	for i, v := range vals64 {
		order[i] = int(v)
	}
	return order, nil
}

// SaveReliabilityOrder writes the order as little-endian int64 values.
func SaveReliabilityOrder(path string, order []int) error {
	vals64 := make([]int64, len(order))
	for i, v := range order {
		vals64[i] = int64(v)
	}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vals64); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ErrBadTable reports a reliability table row that is not "index rank".
var ErrBadTable = errors.New("polar: malformed reliability table")

// LoadReliabilityTable reads a text reliability table, see ParseReliabilityTable.
func LoadReliabilityTable(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read reliability table: %w", err)
	}
	defer f.Close()
	return ParseReliabilityTable(f)
}

// ParseReliabilityTable reads "index rank" rows, one per line, where a larger rank is more
// reliable. '#' starts a comment. The result lists indices most reliable first; equal ranks
// keep file order.
func ParseReliabilityTable(r io.Reader) ([]int, error) {
	type entry struct{ pos, rank int }
	var entries []entry
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text, _, _ := strings.Cut(sc.Text(), "#")
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrBadTable, line, len(fields))
		}
		pos, err := strconv.Atoi(fields[0])
		if err != nil || pos < 0 {
			return nil, fmt.Errorf("%w: line %d index %q", ErrBadTable, line, fields[0])
		}
		rank, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d rank %q", ErrBadTable, line, fields[1])
		}
		entries = append(entries, entry{pos, rank})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read reliability table: %w", err)
	}
	slices.SortStableFunc(entries, func(a, b entry) int { return cmp.Compare(b.rank, a.rank) })
	order := make([]int, len(entries))
	for i, e := range entries {
		order[i] = e.pos
	}
	return order, nil
}
