package search

type key [2]int

func (a key) less(b key) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

// openList is a min-heap of states ordered by key.
type openList []*state

func (q openList) Len() int { return len(q) }

func (q openList) Less(i, j int) bool {
	if q[i].key != q[j].key {
		return q[i].key.less(q[j].key)
	}
	return q[i].id < q[j].id
}

func (q openList) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].heapIndex = i
	q[j].heapIndex = j
}

func (q *openList) Push(x any) {
	s := x.(*state)
	s.heapIndex = len(*q)
	*q = append(*q, s)
}

func (q *openList) Pop() any {
	old := *q
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.heapIndex = -1
	*q = old[:n-1]
	return s
}
