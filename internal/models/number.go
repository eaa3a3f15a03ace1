package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Count is a whole-number aggregate. It decodes from a number or a numeric string;
// null, missing and "" decode to 0.
type Count int64

// Amount is a decimal aggregate with the same lenient decoding as Count.
type Amount float64

func (n *Count) UnmarshalJSON(b []byte) error {
	f, err := jsonNumber(b)
	if err != nil {
		return err
	}
	*n = Count(math.Trunc(f))
	return nil
}

func (n *Count) DecodeMsgpack(dec *msgpack.Decoder) error {
	f, err := msgpackNumber(dec)
	if err != nil {
		return err
	}
	*n = Count(math.Trunc(f))
	return nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	f, err := jsonNumber(b)
	if err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

func (a *Amount) DecodeMsgpack(dec *msgpack.Decoder) error {
	f, err := msgpackNumber(dec)
	if err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

func jsonNumber(b []byte) (float64, error) {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return 0, nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, err
		}
		return parseNumber(s)
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return 0, err
	}
	return f, nil
}

func msgpackNumber(dec *msgpack.Decoder) (float64, error) {
	v, err := dec.DecodeInterface()
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case nil:
		return 0, nil
	case string:
		return parseNumber(n)
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("expected a number, got %q", s)
	}
	return f, nil
}
