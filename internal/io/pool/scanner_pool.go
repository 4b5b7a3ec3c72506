// Package pool recycles the large byte buffers bufio.Scanner needs when
// reading multi-gigabyte log files, so reading several log files in one
// run reuses a 1MB buffer instead of allocating a fresh one per file.
package pool

import "sync"

// ScannerBufferPool provides a pool of 1MB buffers for bufio.Scanner.
var ScannerBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 1024*1024)
		return &buf
	},
}

// GetScannerBuffer gets a 1MB buffer from the pool.
func GetScannerBuffer() *[]byte {
	return ScannerBufferPool.Get().(*[]byte)
}

// PutScannerBuffer returns a scanner buffer to the pool.
func PutScannerBuffer(buf *[]byte) {
	if buf != nil {
		*buf = (*buf)[:cap(*buf)]
	}
	ScannerBufferPool.Put(buf)
}
