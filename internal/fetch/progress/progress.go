// Package progress reports byte counts while a large artifact moves through
// an io.Reader.
package progress

import "io"

// Reader wraps an io.Reader and invokes a callback every reportInterval
// bytes. The first read always reports, so even transfers smaller than one
// interval leave a trace that streaming started.
type Reader struct {
	reader         io.Reader
	total          int64
	onProgress     func(sent int64, total int64)
	totalRead      int64
	sinceReport    int64
	reportInterval int64
}

func NewReader(r io.Reader, total int64, interval int64, cb func(sent int64, total int64)) *Reader {
	return &Reader{
		reader:         r,
		total:          total,
		onProgress:     cb,
		reportInterval: interval,
	}
}

func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		first := pr.totalRead == 0
		pr.totalRead += int64(n)
		pr.sinceReport += int64(n)

		if first || pr.sinceReport >= pr.reportInterval {
			pr.onProgress(pr.totalRead, pr.total)
			pr.sinceReport = 0
		}
	}

	return n, err
}
