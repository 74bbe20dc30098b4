package commands

import (
	"fmt"
	"strconv"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseID parses a positive numeric id argument
func parseID(name, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", name, arg)
	}
	return id, nil
}

func parseIDs(name string, args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(name, arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseInt(name, arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", name, err)
	}
	return n, nil
}

// parseDate accepts RFC 3339 or a UTC "YYYY-MM-DD[ HH:MM]" date
func parseDate(arg string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, arg); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected e.g. 2025-03-04 19:00", arg)
}
