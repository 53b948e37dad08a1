package matching

import (
	"context"
	"sync"
	"sync/atomic"
)

// MatchBatch scores many normalized texts concurrently on a bounded worker
// pool. Results line up with the input slice; unmatched entries are nil.
// Workers share only the read path of the store and the cache.
func (m *Matcher) MatchBatch(ctx context.Context, texts []string) ([]*Candidate, error) {
	results := make([]*Candidate, len(texts))
	if len(texts) == 0 {
		return results, nil
	}

	workers := m.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(texts) {
		workers = len(texts)
	}

	indices := make(chan int)
	errs := make(chan error, 1)
	var failed atomic.Bool

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				if failed.Load() {
					continue
				}
				candidate, err := m.Match(ctx, texts[i])
				if err != nil {
					failed.Store(true)
					select {
					case errs <- err:
					default:
					}
					continue
				}
				results[i] = candidate
			}
		}()
	}

	for i := range texts {
		select {
		case <-ctx.Done():
			close(indices)
			wg.Wait()
			return nil, ctx.Err()
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()

	select {
	case err := <-errs:
		return nil, err
	default:
	}
	return results, nil
}
