package db

import (
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/russross/meddler"
)

func init() {
	meddler.Register("hash", hexMeddler[common.Hash]{
		decode: common.HexToHash,
		encode: common.Hash.Hex,
	})
	meddler.Register("address", hexMeddler[common.Address]{
		decode: common.HexToAddress,
		encode: AddressKey,
	})
}

// AddressKey is the canonical stored form of an address: lower-case hex, so
// lookups do not depend on checksum casing.
func AddressKey(a common.Address) string {
	return hexutil.Encode(a.Bytes())
}

// hexMeddler stores a fixed-size hex value as TEXT. Pointer fields map to NULL.
type hexMeddler[T any] struct {
	decode func(string) T
	encode func(T) string
}

func (hexMeddler[T]) PreRead(any) (any, error) {
	return new(sql.NullString), nil
}

func (m hexMeddler[T]) PostRead(fieldAddr, scanTarget any) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	switch ptr := fieldAddr.(type) {
	case *T:
		var zero T
		*ptr = zero
		if ns.Valid {
			*ptr = m.decode(ns.String)
		}
	case **T:
		*ptr = nil
		if ns.Valid {
			v := m.decode(ns.String)
			*ptr = &v
		}
	default:
		var zero T
		return fmt.Errorf("cannot read %T into %T", zero, fieldAddr)
	}

	return nil
}

func (m hexMeddler[T]) PreWrite(field any) (any, error) {
	switch v := field.(type) {
	case T:
		return m.encode(v), nil
	case *T:
		if v == nil {
			return nil, nil
		}
		return m.encode(*v), nil
	default:
		var zero T
		return nil, fmt.Errorf("cannot write %T as %T", field, zero)
	}
}
