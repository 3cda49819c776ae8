package matrix

import "sync"

// runPool executes jobs with at most maxWorkers concurrently and waits for
// all of them. Jobs record their own outcomes on the cells they close over.
func runPool(maxWorkers int, jobs []func()) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxWorkers)

	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(j func()) {
			defer wg.Done()
			defer func() { <-sem }()
			j()
		}(job)
	}
	wg.Wait()
}
