package executor

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math/big"

	"github.com/google/go-cmp/cmp"
)

// numbersEqual compares JSON numbers by value, so 1 and 1.0 match while large
// integers are compared exactly.
var numbersEqual = cmp.Comparer(func(a, b json.Number) bool {
	x, okA := new(big.Rat).SetString(string(a))
	y, okB := new(big.Rat).SetString(string(b))
	if !okA || !okB {
		return a == b
	}
	return x.Cmp(y) == 0
})

// compareBodies reports whether two JSON documents are structurally equal and,
// if not, a diff from expected to actual. Absent documents compare as null.
func compareBodies(expected, actual json.RawMessage) (bool, string) {
	want, err := decodeValue(expected)
	if err != nil {
		return false, "expected response is not valid json: " + err.Error()
	}
	got, err := decodeValue(actual)
	if err != nil {
		return false, "actual response is not valid json: " + err.Error()
	}
	if cmp.Equal(want, got, numbersEqual) {
		return true, ""
	}
	return false, cmp.Diff(want, got, numbersEqual)
}

func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("unexpected data after json value")
	}
	return v, nil
}
