package lessons

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NotRatedLabel is how an absent rating is shown and encoded.
const NotRatedLabel = "not rated"

// Rating is a session rating from 1 to 5, or not rated. The zero value is
// not rated.
type Rating struct {
	value int
}

// NotRated is the explicit "not rated" sentinel.
var NotRated = Rating{}

// NewRating returns a numeric rating. n must be between 1 and 5.
func NewRating(n int) (Rating, error) {
	if n < 1 || n > 5 {
		return Rating{}, fmt.Errorf("%w: rating %d out of range 1-5", ErrInvalidInput, n)
	}
	return Rating{value: n}, nil
}

// ParseRating accepts "1" through "5" or "not rated", ignoring case and
// surrounding space.
func ParseRating(s string) (Rating, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == NotRatedLabel {
		return NotRated, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Rating{}, fmt.Errorf("%w: rating %q", ErrInvalidInput, s)
	}
	return NewRating(n)
}

// Value returns the numeric rating, or false when not rated.
func (r Rating) Value() (int, bool) {
	return r.value, r.value != 0
}

func (r Rating) String() string {
	if r.value == 0 {
		return NotRatedLabel
	}
	return strconv.Itoa(r.value)
}

// MarshalJSON encodes a number, or the string "not rated".
func (r Rating) MarshalJSON() ([]byte, error) {
	if r.value == 0 {
		return json.Marshal(NotRatedLabel)
	}
	return json.Marshal(r.value)
}

// UnmarshalJSON accepts a number, a numeric string or "not rated".
func (r *Rating) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		parsed, err := NewRating(n)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: rating must be a number or string", ErrInvalidInput)
	}
	parsed, err := ParseRating(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalYAML mirrors MarshalJSON.
func (r Rating) MarshalYAML() (any, error) {
	if r.value == 0 {
		return NotRatedLabel, nil
	}
	return r.value, nil
}
