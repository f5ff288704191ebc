package progress

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderReportsEveryInterval(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 1000)

	var reports []int64

	pr := NewReader(bytes.NewReader(data), int64(len(data)), 1, func(sent, total int64) {
		reports = append(reports, sent)
		require.Equal(t, int64(len(data)), total)
	})

	buf := make([]byte, 250)

	for {
		if _, err := pr.Read(buf); err == io.EOF {
			break
		} else {
			require.NoError(t, err)
		}
	}

	require.Equal(t, []int64{250, 500, 750, 1000}, reports)
}

func TestReaderReportsFirstReadBelowInterval(t *testing.T) {
	var reports []int64

	pr := NewReader(bytes.NewReader([]byte("tiny")), 4, 1<<20, func(sent, total int64) {
		reports = append(reports, sent)
	})

	_, err := io.ReadAll(pr)
	require.NoError(t, err)

	// A transfer smaller than one interval still reports once, on the
	// first read.
	require.Equal(t, []int64{4}, reports)
}
