package server

import (
	"errors"
	"strconv"
	"strings"
)

func parseOptionalBool(raw string) (*bool, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, errors.New("invalid_bool")
	}
	return &parsed, nil
}
