package sim

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// MaxTokenSize bounds a single trace token. Longer tokens fail the read.
const MaxTokenSize = 64 << 20

// Record is one trace reference. Op is carried for read/write distinction
// but does not influence replacement.
type Record struct {
	Op   byte
	Addr string
}

// ReadTrace parses whitespace-separated (operation, address) pairs. The
// operation is a single character; if it is glued to the address ("R0x1f")
// the rest of the token is the address. An operation with no address after
// it ends the trace.
func ReadTrace(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), MaxTokenSize)
	scanner.Split(bufio.ScanWords)

	var records []Record
	for scanner.Scan() {
		tok := scanner.Text()
		rec := Record{Op: tok[0]}
		if len(tok) > 1 {
			rec.Addr = tok[1:]
		} else {
			if !scanner.Scan() {
				break
			}
			rec.Addr = scanner.Text()
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("read trace: %w", err)
	}
	return records, nil
}

func LoadTrace(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadTrace(file)
}
