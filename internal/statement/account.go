package statement

import (
	"path/filepath"
	"regexp"
	"strings"
)

// AccountInfo is the owner metadata extracted from a statement's filename
// or content.
type AccountInfo struct {
	PersonName  string
	DPID        string
	DisplayName string
}

// Filename conventions brokers and users follow: "Ravi demat.xlsx",
// "Ravi's demat statement.xlsx", "Ravi portfolio.xlsx".
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^([A-Za-z\s]+?)\s+demat`),
	regexp.MustCompile(`(?i)^([A-Za-z\s]+?)'s\s+demat`),
	regexp.MustCompile(`(?i)^([A-Za-z\s]+?)\s+portfolio`),
}

var dpIDPattern = regexp.MustCompile(`(?i)DP\s*ID\s*[:\-]\s*([A-Za-z0-9]+)`)

// ExtractAccountInfo derives the account owner's name and DP ID. The
// filename is tried first; failing that, the statement's cell grid is
// scanned for a name pattern and a "DP ID:" cell. The bare filename is the
// last-resort display name.
func ExtractAccountInfo(filename string, cells [][]string) AccountInfo {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	info := AccountInfo{}
	if name, ok := matchName(base); ok {
		info.PersonName = name
	}

	for _, row := range cells {
		for _, cell := range row {
			if info.DPID == "" {
				if m := dpIDPattern.FindStringSubmatch(cell); m != nil {
					info.DPID = strings.TrimSpace(m[1])
				}
			}
			if info.PersonName == "" {
				if name, ok := matchName(cell); ok {
					info.PersonName = name
				}
			}
		}
		if info.PersonName != "" && info.DPID != "" {
			break
		}
	}

	if info.PersonName == "" {
		info.PersonName = base
	}

	info.DisplayName = info.PersonName
	if info.DPID != "" {
		info.DisplayName = info.PersonName + " (" + info.DPID + ")"
	}
	return info
}

func matchName(s string) (string, bool) {
	for _, p := range namePatterns {
		if m := p.FindStringSubmatch(s); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}
