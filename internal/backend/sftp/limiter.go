package sftp

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// newLimiter returns a limiter for kib KiB/s, or nil for no limit.
func newLimiter(kib int) *rate.Limiter {
	if kib <= 0 {
		return nil
	}
	bytesPerSec := kib * 1024
	return rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec)
}

type rateLimitedReader struct {
	ctx    context.Context
	reader io.Reader
	bucket *rate.Limiter
}

func limitReader(ctx context.Context, rd io.Reader, l *rate.Limiter) io.Reader {
	if l == nil {
		return rd
	}
	return rateLimitedReader{ctx: ctx, reader: rd, bucket: l}
}

func (r rateLimitedReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if werr := consumeTokens(r.ctx, n, r.bucket); werr != nil {
		return n, werr
	}
	return n, err
}

func consumeTokens(ctx context.Context, tokens int, bucket *rate.Limiter) error {
	// WaitN fails for more than Burst() tokens at once
	maxWait := bucket.Burst()
	for tokens > maxWait {
		if err := bucket.WaitN(ctx, maxWait); err != nil {
			return err
		}
		tokens -= maxWait
	}
	return bucket.WaitN(ctx, tokens)
}
