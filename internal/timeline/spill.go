package timeline

import (
	"bufio"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/vipertrack/vipertrack/internal/util"
)

// SpillQueue is the durable local fallback for records whose sink writes
// exhausted their retries. It is an append-only JSONL file plus an in-memory
// head index; records replay in append order, so bucket ordering survives a
// sink outage within a run. Replay is at-least-once: a crash between a
// successful replay and the truncate may deliver a record twice, which the
// sink contract tolerates.
type SpillQueue struct {
	path    string
	pending []Record
	head    int
}

// OpenSpillQueue opens (or creates) the spill file and loads any records left
// over from a previous run.
func OpenSpillQueue(path string) (*SpillQueue, error) {
	q := &SpillQueue{path: path}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return q, nil
		}
		return nil, fmt.Errorf("open spill file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := sonic.Unmarshal(line, &rec); err != nil {
			// A torn trailing line from a crash is dropped, not fatal.
			util.LogWarnf("spill file %s: skipping unreadable line: %v", path, err)
			continue
		}
		q.pending = append(q.pending, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read spill file: %w", err)
	}

	if len(q.pending) > 0 {
		util.LogInfof("spill queue recovered %d pending records from %s", len(q.pending), path)
	}
	return q, nil
}

// Len returns the number of records waiting for replay.
func (q *SpillQueue) Len() int {
	return len(q.pending) - q.head
}

// Peek returns the oldest pending record without removing it.
func (q *SpillQueue) Peek() (Record, bool) {
	if q.Len() == 0 {
		return Record{}, false
	}
	return q.pending[q.head], true
}

// Append durably adds a record to the tail of the queue.
func (q *SpillQueue) Append(rec Record) error {
	data, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode spill record: %w", err)
	}

	file, err := os.OpenFile(q.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open spill file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append spill record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync spill file: %w", err)
	}

	q.pending = append(q.pending, rec)
	return nil
}

// Pop removes the oldest pending record after a successful replay. When the
// queue drains completely the spill file is truncated.
func (q *SpillQueue) Pop() error {
	if q.Len() == 0 {
		return nil
	}
	q.head++
	if q.head == len(q.pending) {
		q.pending = nil
		q.head = 0
		if err := os.Truncate(q.path, 0); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("truncate spill file: %w", err)
		}
	}
	return nil
}
