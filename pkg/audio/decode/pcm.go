// ABOUTME: Headerless PCM loader
// ABOUTME: Reads raw 16-bit little-endian files captured by earlier takes or exports
package decode

import (
	"io"

	"github.com/dipak140/oboe-music-player/pkg/audio"
)

// Raw decodes headerless 16-bit PCM in a fixed format
type Raw struct {
	Format audio.Format
}

// Decode reads the whole stream
func (d Raw) Decode(r io.ReadSeeker) (*audio.Track, error) {
	return LoadRaw(r, d.Format)
}
