package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
)

// CoordinateScale is the number of Coordinate units per degree.
const CoordinateScale = 100000

// maxCoordinate bounds parsing; NUMERIC(8,5) cannot hold more than 999.99999.
const maxCoordinate = 1000 * CoordinateScale

var ErrCoordinateSyntax = errors.New("invalid coordinate")

// Coordinate is a latitude or longitude in fixed point with five
// fractional digits, matching the NUMERIC(8,5) columns.
type Coordinate int64

// ParseCoordinate reads a decimal (exponents allowed). Digits beyond the
// fifth fractional place are rounded half away from zero.
func ParseCoordinate(s string) (Coordinate, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		return 0, fmt.Errorf("%w: %q", ErrCoordinateSyntax, s)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrCoordinateSyntax, s)
	}

	r.Mul(r, big.NewRat(CoordinateScale, 1))

	neg := r.Sign() < 0
	num := new(big.Int).Abs(r.Num())
	den := r.Denom()

	q, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Lsh(rem, 1).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}

	if !q.IsInt64() || q.Int64() >= maxCoordinate {
		return 0, fmt.Errorf("%w: %q out of range", ErrCoordinateSyntax, s)
	}

	v := q.Int64()
	if neg {
		v = -v
	}
	return Coordinate(v), nil
}

// CoordinateFromDegrees converts whole degrees.
func CoordinateFromDegrees(deg int64) Coordinate {
	return Coordinate(deg * CoordinateScale)
}

// Within reports whether |c| <= limit degrees.
func (c Coordinate) Within(limit int64) bool {
	bound := CoordinateFromDegrees(limit)
	return c >= -bound && c <= bound
}

// String formats c with exactly five fractional digits.
func (c Coordinate) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%05d", sign, v/CoordinateScale, v%CoordinateScale)
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. Failures are
// reported as *json.UnmarshalTypeError so the decoder records the field.
func (c *Coordinate) UnmarshalJSON(b []byte) error {
	s := string(b)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	v, err := ParseCoordinate(s)
	if err != nil {
		return &json.UnmarshalTypeError{Value: "coordinate " + string(b), Type: reflect.TypeOf(Coordinate(0))}
	}
	*c = v
	return nil
}

func (c Coordinate) Value() (driver.Value, error) {
	return c.String(), nil
}

func (c *Coordinate) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return c.scanString(v)
	case []byte:
		return c.scanString(string(v))
	case float64:
		return c.scanString(strconv.FormatFloat(v, 'f', -1, 64))
	case int64:
		*c = CoordinateFromDegrees(v)
		return nil
	}
	return fmt.Errorf("cannot scan %T into Coordinate", src)
}

func (c *Coordinate) scanString(s string) error {
	v, err := ParseCoordinate(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}
