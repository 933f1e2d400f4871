package timeline

import "sort"

// Locate scans series from the start and returns the index of the first
// sample whose timestamp is not earlier than target. found is false when the
// series is empty or every sample precedes target; the index is then 0 and
// must not be used.
func Locate(target Timestamp, series []Timestamp) (index int, found bool) {
	for i, ts := range series {
		if !ts.Before(target) {
			return i, true
		}
	}
	return 0, false
}

// LocateSorted is Locate for long, non-decreasing series. It returns the
// same result using a binary search.
func LocateSorted(target Timestamp, series []Timestamp) (index int, found bool) {
	i := sort.Search(len(series), func(i int) bool {
		return !series[i].Before(target)
	})
	if i == len(series) {
		return 0, false
	}
	return i, true
}

// Locator resolves a timestamp against a series. Both Locate and
// LocateSorted satisfy it.
type Locator func(target Timestamp, series []Timestamp) (int, bool)
