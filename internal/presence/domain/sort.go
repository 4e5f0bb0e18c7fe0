package domain

import "sort"

// SortForViewer orders records with the viewer's own record first and the
// rest by descending write timestamp. A missing timestamp counts as zero.
// The input slice is sorted in place and returned.
func SortForViewer(records []Record, viewerUID string) []Record {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if viewerUID != "" {
			if a.UID == viewerUID && b.UID != viewerUID {
				return true
			}
			if b.UID == viewerUID {
				return false
			}
		}
		return a.WrittenAt() > b.WrittenAt()
	})
	return records
}

// Find returns the record keyed by uid.
func Find(records []Record, uid string) (Record, bool) {
	for _, r := range records {
		if r.UID == uid {
			return r, true
		}
	}
	return Record{}, false
}
