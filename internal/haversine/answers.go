package haversine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// WriteAnswers writes every distance followed by their mean as
// little-endian float64 values.
func WriteAnswers(w io.Writer, distances []float64, mean float64) error {
	buf := make([]byte, 8*(len(distances)+1))
	for i, d := range distances {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(d))
	}
	binary.LittleEndian.PutUint64(buf[len(distances)*8:], math.Float64bits(mean))

	_, err := w.Write(buf)
	return err
}

// ReadReferenceMean reads an answers stream written for pairCount pairs and
// returns the mean stored after the distances.
func ReadReferenceMean(r io.Reader, pairCount int) (float64, error) {
	if _, err := io.CopyN(io.Discard, r, int64(pairCount)*8); err != nil {
		return 0, fmt.Errorf("failed to skip %d distances: %w", pairCount, err)
	}

	var raw [8]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, fmt.Errorf("failed to read reference mean: %w", err)
	}

	return math.Float64frombits(binary.LittleEndian.Uint64(raw[:])), nil
}
