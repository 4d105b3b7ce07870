package jobgraph

import (
	"strconv"
	"strings"
)

// Key identifies a job by section and coordinates.
// An empty Date or Member, or a zero Chunk, means the job doesn't vary along that axis.
type Key struct {
	Section string
	Date    string
	Member  string
	Chunk   int
}

// Coordinates is the position of a job along the date, member and chunk axes.
type Coordinates struct {
	Date   string
	Member string
	Chunk  int
}

func (k Key) Coordinates() Coordinates {
	return Coordinates{Date: k.Date, Member: k.Member, Chunk: k.Chunk}
}

// Name returns the job name for this key, e.g., "a000_20000101_fc0_1_sim".
// Coordinates the job doesn't have are left out.
func (k Key) Name(expid string) string {
	parts := make([]string, 0, 5)
	if expid != "" {
		parts = append(parts, expid)
	}
	if k.Date != "" {
		parts = append(parts, k.Date)
	}
	if k.Member != "" {
		parts = append(parts, k.Member)
	}
	if k.Chunk != 0 {
		parts = append(parts, strconv.Itoa(k.Chunk))
	}
	parts = append(parts, k.Section)
	return strings.Join(parts, "_")
}

// Matches returns true if the coordinates of k are compatible with c.
// An axis that's unset on either side matches anything.
func (k Key) Matches(c Coordinates) bool {
	if k.Date != "" && c.Date != "" && k.Date != c.Date {
		return false
	}
	if k.Member != "" && c.Member != "" && k.Member != c.Member {
		return false
	}
	if k.Chunk != 0 && c.Chunk != 0 && k.Chunk != c.Chunk {
		return false
	}
	return true
}
