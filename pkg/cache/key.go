package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ccollicutt/sippstat/pkg/schema"
)

// Digest returns the hex SHA-256 of a report's bytes.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key combines a report digest with the column mapping and delimiter that
// were used to read it, so a config change never serves a stale series.
func Key(digest string, cols schema.Columns, delimiter rune) string {
	h := sha256.New()
	io.WriteString(h, digest)
	for _, f := range schema.AllFields() {
		fmt.Fprintf(h, "\x00%s=%s", f, cols.Name(f))
	}
	fmt.Fprintf(h, "\x00histogram=%s\x00delimiter=%q", cols.HistogramPrefix, delimiter)
	return hex.EncodeToString(h.Sum(nil))
}
