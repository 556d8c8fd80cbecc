package customer

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Customer codes are "KH" + yyyyMM + a 6-digit zero-padded sequence,
// numbered independently per year-month prefix: KH202512000001.
const (
	codePrefix = "KH"
	codeSeqLen = 6
)

// maxCodeRetries bounds regeneration after a cross-process collision.
const maxCodeRetries = 3

// codeForMonth returns the sequence prefix for t's year-month.
func codeForMonth(t time.Time) string {
	return codePrefix + t.Format("200601")
}

// nextCode computes the successor of maxCode under the given prefix.
// An empty maxCode starts the sequence at 1.
func nextCode(prefix, maxCode string) (string, error) {
	seq := 1
	if maxCode != "" {
		if len(maxCode) <= len(prefix) {
			return "", fmt.Errorf("malformed customer code %q for prefix %q", maxCode, prefix)
		}
		n, err := strconv.Atoi(maxCode[len(prefix):])
		if err != nil {
			return "", fmt.Errorf("malformed customer code %q: %w", maxCode, err)
		}
		seq = n + 1
	}
	return fmt.Sprintf("%s%0*d", prefix, codeSeqLen, seq), nil
}

// GenerateCode produces the next customer code for the current
// year-month from the persisted maximum. In-process callers are
// serialized; cross-process collisions are handled where the code is
// written, by unique-violation retry (see Create and ImportFromCSV).
func (s *Service) GenerateCode(ctx context.Context) (string, error) {
	s.codeMu.Lock()
	defer s.codeMu.Unlock()

	prefix := codeForMonth(s.clock())
	maxCode, err := s.store.GetMaxCode(ctx, prefix)
	if err != nil {
		return "", err
	}
	return nextCode(prefix, maxCode)
}
