// pkg/sdf/verify.go

package sdf

import (
	"context"
	"sync"
	"time"

	"SeqStore/pkg/array"
	"SeqStore/pkg/object"
)

// VerifyConfig controls a parallel store check.
type VerifyConfig struct {
	Threads   int
	BatchSize int64 // sequences per task
	// Progress is called from the workers with the number of sequences just checked.
	Progress func(sequences int64)
}

// VerifyReport summarizes a successful check.
type VerifyReport struct {
	Sequences   int64
	Bytes       int64
	DataHash    uint64
	QualityHash uint64
	NameHash    uint64
	SuffixHash  uint64
}

type rangeResult struct {
	start, end  int64
	bytes       int64
	dataHash    uint64
	qualityHash uint64
}

// Verify reloads every sequence of a store, checking each per-sequence
// checksum and the store-wide content hashes. Ranges are checked by
// conf.Threads workers, each with its own file handles.
func Verify(ctx context.Context, storage object.ObjectStorage, conf *VerifyConfig) (*VerifyReport, error) {
	l, err := NewLoader(storage)
	if err != nil {
		return nil, err
	}
	threads, batch := conf.Threads, conf.BatchSize
	if threads <= 0 {
		threads = 1
	}
	if batch <= 0 {
		batch = 4096
	}
	n := l.NumberSequences()
	var tasks []rangeResult
	for s := int64(0); s < n; s += batch {
		tasks = append(tasks, rangeResult{start: s, end: min(s+batch, n)})
	}
	logger.Infof("start to verify %d sequences in %d ranges with %d workers", n, len(tasks), threads)
	started := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	todo := make(chan int, 10240)
	var firstErr error
	var errOnce sync.Once
	wg := sync.WaitGroup{}
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range todo {
				if ctx.Err() != nil {
					continue
				}
				if err := verifyRange(ctx, l, &tasks[t]); err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				if conf.Progress != nil {
					conf.Progress(tasks[t].end - tasks[t].start)
				}
			}
		}()
	}
	for t := range tasks {
		todo <- t
	}
	close(todo)
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	main := l.MainIndex()
	report := &VerifyReport{Sequences: n}
	for _, t := range tasks {
		report.DataHash = CombineHash(report.DataHash, t.dataHash, t.end-t.start, t.bytes)
		report.QualityHash = CombineHash(report.QualityHash, t.qualityHash, t.end-t.start, t.bytes)
		report.Bytes += t.bytes
	}
	if report.DataHash != main.DataHash {
		return nil, corrupt(MainIndexFile, -1, "sequence data hash %#x does not match recorded %#x", report.DataHash, main.DataHash)
	}
	if main.HasQuality && report.QualityHash != main.QualityHash {
		return nil, corrupt(MainIndexFile, -1, "quality hash %#x does not match recorded %#x", report.QualityHash, main.QualityHash)
	}
	if !main.HasQuality {
		report.QualityHash = 0
	}
	if main.HasNames {
		if report.NameHash, err = hashNames(ctx, l.st.nameStreams(), n); err != nil {
			return nil, err
		}
		if report.NameHash != main.NameHash {
			return nil, corrupt(MainIndexFile, -1, "name hash %#x does not match recorded %#x", report.NameHash, main.NameHash)
		}
		if sm := l.st.suffixStreams(); sm != nil {
			if report.SuffixHash, err = hashNames(ctx, sm, n); err != nil {
				return nil, err
			}
			if report.SuffixHash != main.SuffixHash {
				return nil, corrupt(MainIndexFile, -1, "suffix hash %#x does not match recorded %#x", report.SuffixHash, main.SuffixHash)
			}
		}
	}
	logger.Infof("verified %d sequences (%d bytes) in %s", n, report.Bytes, time.Since(started))
	return report, nil
}

func verifyRange(ctx context.Context, l *Loader, t *rangeResult) error {
	n := t.end - t.start
	positions := array.NewLongs(n + 1)
	checksums := array.NewBytes(n)
	var qualityChecksums array.ByteArray
	if l.HasQuality() {
		qualityChecksums = array.NewBytes(n)
	}
	if err := l.LoadPositions(ctx, t.start, t.end, positions, checksums, qualityChecksums); err != nil {
		return err
	}
	t.bytes = positions.Get(n) - positions.Get(0)
	var err error
	if t.dataHash, err = l.LoadData(ctx, t.start, t.end, positions, nil, checksums, true); err != nil {
		return err
	}
	if l.HasQuality() {
		if t.qualityHash, err = l.LoadQuality(ctx, t.start, t.end, positions, nil, qualityChecksums, true); err != nil {
			return err
		}
	}
	return nil
}

func hashNames(ctx context.Context, m *streamManager, n int64) (uint64, error) {
	names, err := loadNames(ctx, m, 0, n)
	if err != nil {
		return 0, err
	}
	var h Hash
	for _, name := range names {
		h.Sequence(toLatin1(name))
	}
	return h.Sum(), nil
}
