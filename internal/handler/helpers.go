package handler

import (
	"strconv"

	"github.com/iliyamo/restaurant-directory/internal/protocol"
)

// readArgs consumes n argument lines from the session. The handler, not the
// dispatcher, knows how many lines its command carries.
func readArgs(s *protocol.Session, n int) ([]string, error) {
	args := make([]string, n)
	for i := 0; i < n; i++ {
		line, err := s.ReadLine()
		if err != nil {
			return nil, err
		}
		args[i] = line
	}
	return args, nil
}

// parseID parses a decimal entity id.
func parseID(s string) (uint64, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	return id, err == nil
}

// yn renders a boolean as the wire flag.
func yn(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

// optFloat treats "-" as absent and anything else as a float field.
func optFloat(s string) (*float64, bool) {
	if s == "-" {
		return nil, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return &f, true
}

// optInt treats "-" as absent and anything else as an integer field.
func optInt(s string) (*int, bool) {
	if s == "-" {
		return nil, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, false
	}
	return &n, true
}

// optBool treats "-" as absent, "y" as true and "n" as false.
func optBool(s string) (*bool, bool) {
	switch s {
	case "-":
		return nil, true
	case "y":
		b := true
		return &b, true
	case "n":
		b := false
		return &b, true
	}
	return nil, false
}
