package server

import "regexp"

// IATA airport codes are exactly 3 latin letters. Airline codes are 2 or 3
// letters/digits (3-letter codes are reserved but not yet assigned, accepted
// anyway). Direction is the vendor's dep/arr vocabulary.
var (
	iataPattern    = regexp.MustCompile(`^[A-Z]{3}$`)
	airlinePattern = regexp.MustCompile(`^[A-Z0-9]{2,3}$`)
	typePattern    = regexp.MustCompile(`^dep$|^arr$`)
)

// FormErrors validates the request-surface parameters before any dispatch.
// It returns a field→message map, empty when the input is acceptable.
func FormErrors(iata, direction, airline string) map[string]string {
	errs := make(map[string]string)

	if iata == "" {
		errs["iata"] = "Required!"
	} else if !iataPattern.MatchString(iata) {
		errs["iata"] = "Invalid!"
	}

	if airline != "" && !airlinePattern.MatchString(airline) {
		errs["airline"] = "Invalid!"
	}

	if !typePattern.MatchString(direction) {
		errs["type"] = "Invalid!"
	}

	return errs
}
