package parser

import (
	"errors"
	"fmt"
	"regexp"

	"fundwatch/internal/fund"
)

// The directory endpoint serves JS source of the shape
// var r = [["000001","HXCZHH","华夏成长混合","混合型-灵活"], ...];
var directoryPattern = regexp.MustCompile(`(?s)var\s+r\s*=\s*(\[\[.*?\]\]);`)

// A healthy directory holds thousands of rows; far fewer means the
// upstream returned an error page or a block notice instead of data.
const minDirectoryRecords = 1000

var (
	// ErrPatternNotFound means the var r = [[...]] assignment was absent,
	// typically because the request was blocked or the page format changed.
	ErrPatternNotFound = errors.New("fund directory pattern not found")
	// ErrSuspectPayload means the array parsed but was implausibly small.
	ErrSuspectPayload = errors.New("fund directory implausibly small")
)

// ParseDirectory extracts the fund directory from the upstream JS payload.
// Order of records is preserved.
func ParseDirectory(payload []byte) ([]fund.Record, error) {
	m := directoryPattern.FindSubmatch(payload)
	if m == nil {
		return nil, ErrPatternNotFound
	}

	rows, err := evalLiteralArray(string(m[1]))
	if err != nil {
		return nil, fmt.Errorf("fund directory: %w", err)
	}
	if len(rows) < minDirectoryRecords {
		return nil, fmt.Errorf("%w: %d records", ErrSuspectPayload, len(rows))
	}

	records := make([]fund.Record, 0, len(rows))
	for i, row := range rows {
		cells, ok := row.([]any)
		if !ok {
			return nil, fmt.Errorf("fund directory: row %d is not a list", i)
		}
		records = append(records, fund.RecordFromRow(cells))
	}
	return records, nil
}
