package security

import (
	"errors"
	"strconv"
)

// Discord snowflakes encode a ms timestamp since 2015 plus worker and
// sequence bits, which puts real ids at 17 to 19 digits.
const (
	snowflakeMinDigits = 17
	snowflakeMaxDigits = 19
)

// ParseSnowflake validates a Discord id and returns its numeric value.
func ParseSnowflake(s string) (uint64, error) {
	if len(s) < snowflakeMinDigits || len(s) > snowflakeMaxDigits {
		return 0, errors.New("snowflake must be 17-19 digits")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, errors.New("snowflake must be numeric")
		}
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.New("invalid snowflake")
	}
	if id == 0 {
		return 0, errors.New("snowflake must be > 0")
	}
	return id, nil
}



