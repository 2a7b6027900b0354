package materializer

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goran-ethernal/BuildersIndexer/internal/db"
)

// NormalizeArg converts a value produced by the ABI decoder into a JSON friendly value.
// Integers wider than 64 bits become decimal strings, addresses lowercase hex and
// byte arrays 0x-prefixed hex.
func NormalizeArg(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case *big.Int:
		if t == nil {
			return nil
		}
		return t.String()
	case common.Address:
		return db.AddressKey(t)
	case common.Hash:
		return t.Hex()
	case []byte:
		return hexutil.Encode(t)
	case string, bool:
		return t
	case uint8, uint16, uint32, uint64, int8, int16, int32, int64, int, uint:
		return fmt.Sprint(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return hexutil.Encode(b)
		}
		fallthrough
	case reflect.Slice:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = NormalizeArg(rv.Index(i).Interface())
		}
		return out
	default:
		return fmt.Sprint(v)
	}
}

// NormalizeArgs normalizes every decoded argument.
func NormalizeArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = NormalizeArg(v)
	}

	return out
}

// ColumnValue renders a normalized argument for a text column. Lists are stored as JSON.
func ColumnValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case []any:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	default:
		return fmt.Sprint(t), nil
	}
}
