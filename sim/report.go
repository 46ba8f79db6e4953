package sim

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/evanjt06/pagesim/cache"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const columnWidth = 14

const tableHeader = "size          miss          hit           page fault ratio"

// WriteTable prints one block per policy, in the order the policies first
// appear in results, with one fixed-width row per capacity.
func WriteTable(w io.Writer, results []Result) error {
	var order []cache.Policy
	byPolicy := make(map[cache.Policy][]Result)
	for _, res := range results {
		if _, ok := byPolicy[res.Policy]; !ok {
			order = append(order, res.Policy)
		}
		byPolicy[res.Policy] = append(byPolicy[res.Policy], res)
	}

	bw := bufio.NewWriter(w)
	for _, policy := range order {
		fmt.Fprintf(bw, "%s---\n%s\n", policy, tableHeader)
		for _, res := range byPolicy[policy] {
			fmt.Fprintf(bw, "%-*d%-*d%-*d%s\n",
				columnWidth, res.Capacity,
				columnWidth, res.Misses,
				columnWidth, res.Hits,
				FormatRatio(res.FaultRatio()),
			)
		}
	}
	return bw.Flush()
}

// FormatRatio renders a ratio with six significant digits, or "undefined".
func FormatRatio(ratio float64) string {
	if math.IsNaN(ratio) {
		return "undefined"
	}
	return strconv.FormatFloat(ratio, 'g', 6, 64)
}

// ResultEntry is the JSON-lines form of a Result. Undefined ratios are null.
type ResultEntry struct {
	Policy          string   `json:"policy"`
	Capacity        int      `json:"capacity"`
	Misses          uint64   `json:"misses"`
	Hits            uint64   `json:"hits"`
	Evictions       uint64   `json:"evictions"`
	FaultRatio      *float64 `json:"fault_ratio"`
	RecentFaultRate *float64 `json:"recent_fault_rate"`
}

func makeResultEntry(res Result) ResultEntry {
	return ResultEntry{
		Policy:          res.Policy.String(),
		Capacity:        res.Capacity,
		Misses:          res.Misses,
		Hits:            res.Hits,
		Evictions:       res.Evictions,
		FaultRatio:      definedOrNil(res.FaultRatio()),
		RecentFaultRate: definedOrNil(res.RecentFaultRate),
	}
}

func definedOrNil(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// ResultsLog appends results to a JSON-lines file, one object per run.
type ResultsLog struct {
	Path   string
	Logger *zap.SugaredLogger
}

func (l *ResultsLog) Append(results ...Result) (err error) {
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	bw := bufio.NewWriter(f)
	for _, res := range results {
		data, err := json.Marshal(makeResultEntry(res))
		if err != nil {
			return err
		}
		if _, err := bw.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("write results file: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}

	if l.Logger != nil {
		l.Logger.Debugw("Appended results", "path", l.Path, "count", len(results))
	}
	return nil
}

// ReadResults loads every well-formed entry from a results file written by
// ResultsLog. Lines that do not decode are skipped.
func ReadResults(path string) ([]ResultEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []ResultEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry ResultEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}
