package trendlines

// Window is the half-open index range [Start, End) of one fitting pass.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of indexes in the window.
func (w Window) Len() int {
	return w.End - w.Start
}

// Contains reports whether index i lies in the window.
func (w Window) Contains(i int) bool {
	return i >= w.Start && i < w.End
}

// Last returns the last index inside the window.
func (w Window) Last() int {
	return w.End - 1
}

// Partition splits [0, n) into consecutive windows of size. The last window
// holds the remainder and may be shorter.
func Partition(n, size int) []Window {
	if n <= 0 || size <= 0 {
		return nil
	}
	windows := make([]Window, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		windows = append(windows, Window{Start: start, End: end})
	}
	return windows
}
