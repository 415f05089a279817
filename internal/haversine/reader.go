package haversine

import (
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// ErrMalformedPair is returned for a pair object that is not exactly the four
// numeric keys x0, y0, x1 and y1.
var ErrMalformedPair = errors.New("malformed pair")

const (
	hasX0 = 1 << iota
	hasY0
	hasX1
	hasY1
	hasAll = hasX0 | hasY0 | hasX1 | hasY1
)

// ParsePairs reads a document of the form {"pairs": [{"x0": .., "y0": ..,
// "x1": .., "y1": ..}, ...]}.
func ParsePairs(data []byte) ([]Pair, error) {
	var (
		pairs    []Pair
		pairsErr error
	)

	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if pairsErr != nil {
			return
		}
		if err != nil {
			pairsErr = err
			return
		}
		if dataType != jsonparser.Object {
			pairsErr = fmt.Errorf("%w %d: expected object, got %s", ErrMalformedPair, len(pairs), dataType)
			return
		}

		p, err := parsePair(value)
		if err != nil {
			pairsErr = fmt.Errorf("pair %d: %w", len(pairs), err)
			return
		}
		pairs = append(pairs, p)
	}, "pairs")
	if err != nil {
		return nil, fmt.Errorf("failed to read pairs: %w", err)
	}
	if pairsErr != nil {
		return nil, pairsErr
	}

	return pairs, nil
}

func parsePair(data []byte) (Pair, error) {
	var (
		p    Pair
		seen int
	)

	err := jsonparser.ObjectEach(data, func(key []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		if dataType != jsonparser.Number {
			return fmt.Errorf("%w: %q is not a number", ErrMalformedPair, key)
		}
		v, err := jsonparser.ParseFloat(value)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrMalformedPair, key, err)
		}

		switch string(key) {
		case "x0":
			p.X0, seen = v, seen|hasX0
		case "y0":
			p.Y0, seen = v, seen|hasY0
		case "x1":
			p.X1, seen = v, seen|hasX1
		case "y1":
			p.Y1, seen = v, seen|hasY1
		default:
			return fmt.Errorf("%w: unknown key %q", ErrMalformedPair, key)
		}
		return nil
	})
	if err != nil {
		return Pair{}, err
	}
	if seen != hasAll {
		return Pair{}, fmt.Errorf("%w: missing coordinates", ErrMalformedPair)
	}

	return p, nil
}
