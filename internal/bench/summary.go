package bench

import (
	"fmt"
	"io"
	"sort"
)

// WriteComparison prints a per-operation comparison of one engine's results
// between a baseline run and a new run, with time and memory deltas. This is
// what the CI job posts when an engine change lands.
func WriteComparison(w io.Writer, base, head *Results, engineName string) error {
	baseLookup := summaryLookup(base, engineName)
	headLookup := summaryLookup(head, engineName)

	sizes := uniqueSizes(baseLookup, headLookup)
	operations := uniqueOperations(baseLookup, headLookup)

	if len(sizes) == 0 {
		return fmt.Errorf("no benchmark results for engine %q in either file", engineName)
	}

	fmt.Fprintf(w, "\n--- Benchmark Summary for Engine: %s (Comparison: New vs Base) ---\n", engineName)
	for _, size := range sizes {
		fmt.Fprintf(w, "\nDataset Size: %d entries\n", size)
		fmt.Fprintf(w, "%-32s %-16s %-16s %-14s %-16s %-16s %-14s\n",
			"Operation", "Base Time (s)", "New Time (s)", "Time Delta", "Base Mem (MB)", "New Mem (MB)", "Mem Delta")

		for _, op := range operations {
			baseRow, baseOK := baseLookup[summaryKey{size, op}]
			headRow, headOK := headLookup[summaryKey{size, op}]
			if !baseOK && !headOK {
				continue
			}

			var baseTime, headTime, baseMem, headMem float64
			if baseOK {
				baseTime = baseRow.AvgSeconds
				baseMem = baseRow.AvgHeapBytes / (1 << 20)
			}
			if headOK {
				headTime = headRow.AvgSeconds
				headMem = headRow.AvgHeapBytes / (1 << 20)
			}

			fmt.Fprintf(w, "%-32s %-16.4f %-16.4f %-14s %-16.2f %-16.2f %-14s\n",
				op, baseTime, headTime, deltaPercent(baseTime, headTime),
				baseMem, headMem, deltaPercent(baseMem, headMem))
		}
	}
	fmt.Fprintln(w)
	return nil
}

type summaryKey struct {
	size      int
	operation string
}

func summaryLookup(results *Results, engineName string) map[summaryKey]Summary {
	lookup := make(map[summaryKey]Summary)
	if results == nil {
		return lookup
	}
	for _, s := range results.EngineBenchmarks {
		if s.Engine == engineName {
			lookup[summaryKey{s.DatasetSize, s.Operation}] = s
		}
	}
	return lookup
}

func uniqueSizes(lookups ...map[summaryKey]Summary) []int {
	seen := make(map[int]bool)
	for _, lookup := range lookups {
		for key := range lookup {
			seen[key.size] = true
		}
	}
	sizes := make([]int, 0, len(seen))
	for size := range seen {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	return sizes
}

func uniqueOperations(lookups ...map[summaryKey]Summary) []string {
	seen := make(map[string]bool)
	for _, lookup := range lookups {
		for key := range lookup {
			seen[key.operation] = true
		}
	}
	operations := make([]string, 0, len(seen))
	for op := range seen {
		operations = append(operations, op)
	}
	sort.Strings(operations)
	return operations
}

func deltaPercent(base, head float64) string {
	if base == 0 {
		return "INF"
	}
	return fmt.Sprintf("%+.2f%%", (head-base)/base*100)
}
