// Package pipeline plans, executes and reports on one generation job.
package pipeline

// DefaultChunkSize is both the default and the largest number of records
// produced by one chunk task.
const DefaultChunkSize = 1000

// ClampChunkSize maps size into [1, DefaultChunkSize]; non-positive sizes
// take the default.
func ClampChunkSize(size int) int {
	if size <= 0 || size > DefaultChunkSize {
		return DefaultChunkSize
	}
	return size
}

// PlanChunks splits n records into full chunks of size followed by at most one
// smaller remainder chunk. size is clamped with ClampChunkSize.
func PlanChunks(n, size int) []int {
	if n <= 0 {
		return []int{}
	}
	size = ClampChunkSize(size)
	plan := make([]int, 0, n/size+1)
	for i := 0; i < n/size; i++ {
		plan = append(plan, size)
	}
	if rem := n % size; rem > 0 {
		plan = append(plan, rem)
	}
	return plan
}
