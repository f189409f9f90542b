package journal

import "sync"

// Recorder decouples the world goroutine from journal disk writes. Record is
// non-blocking: entries are dropped if the writer falls behind.
type Recorder struct {
	w    *Writer
	ch   chan Entry
	wg   sync.WaitGroup
	once sync.Once
}

func NewRecorder(baseDir string) *Recorder {
	r := &Recorder{
		w:  NewWriter(baseDir, "events"),
		ch: make(chan Entry, 4096),
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for e := range r.ch {
			_ = r.w.Write(e)
		}
	}()
	return r
}

func (r *Recorder) Record(e Entry) {
	if r == nil {
		return
	}
	select {
	case r.ch <- e:
	default:
	}
}

func (r *Recorder) Close() error {
	var err error
	r.once.Do(func() {
		close(r.ch)
		r.wg.Wait()
		err = r.w.Close()
	})
	return err
}
