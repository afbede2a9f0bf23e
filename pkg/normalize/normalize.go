// Package normalize turns one raw FlightStats airport-status payload into the
// flat flight record list served to clients, expanding codeshare entries and
// applying the optional airline filter.
//
// Failures never propagate: a payload that cannot be normalized collapses into
// one of the sentinel values so the fan-out still reaches its expected size.
package normalize

import (
	"bytes"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avialabs/flightstatus/pkg/flightstats"
)

// Sentinel partials distinguishing failure modes from real payloads.
const (
	// SentinelError marks a window whose vendor call or normalization failed.
	SentinelError = "error"

	// SentinelBadAirport marks a vendor-reported unknown airport code.
	SentinelBadAirport = "bad-airport"
)

// badAirportCode is the vendor error code for an unknown airport.
const badAirportCode = "BAD_AIRPORT_CODE"

// Flight is one flattened board entry. Codeshare records additionally carry
// the operating flight's designator and airline in Operator.
type Flight struct {
	Codeshare int    `json:"codeshare,omitempty"`
	Operator  string `json:"operator,omitempty"`
	Date      string `json:"date,omitempty"`
	Airport   string `json:"airport"`
	Flight    string `json:"flight"`
	Airline   string `json:"airline"`
	Schedule  string `json:"schedule"`
	Actual    string `json:"actual,omitempty"`
	Termgate  string `json:"termgate,omitempty"`
	Status    string `json:"status"`
}

// Vendor payload shape. Only the fields the board needs are decoded.

type payload struct {
	Error          json.RawMessage `json:"error"`
	Appendix       appendix        `json:"appendix"`
	FlightStatuses []flightStatus  `json:"flightStatuses"`
}

type vendorError struct {
	ErrorCode string `json:"errorCode"`
}

type appendix struct {
	Airlines []airlineEntry `json:"airlines"`
	Airports []airportEntry `json:"airports"`
}

type airlineEntry struct {
	Fs   string `json:"fs"`
	Name string `json:"name"`
}

type airportEntry struct {
	Fs   string `json:"fs"`
	City string `json:"city"`
}

type flightStatus struct {
	CarrierFsCode          string            `json:"carrierFsCode"`
	FlightNumber           string            `json:"flightNumber"`
	DepartureAirportFsCode string            `json:"departureAirportFsCode"`
	ArrivalAirportFsCode   string            `json:"arrivalAirportFsCode"`
	DepartureDate          localDate         `json:"departureDate"`
	ArrivalDate            localDate         `json:"arrivalDate"`
	Status                 string            `json:"status"`
	OperationalTimes       operationalTimes  `json:"operationalTimes"`
	AirportResources       *airportResources `json:"airportResources"`
	Codeshares             []codeshare       `json:"codeshares"`
}

type localDate struct {
	DateLocal string `json:"dateLocal"`
}

type operationalTimes struct {
	ActualGateDeparture *localDate `json:"actualGateDeparture"`
	ActualGateArrival   *localDate `json:"actualGateArrival"`
}

type airportResources struct {
	DepartureTerminal string `json:"departureTerminal"`
	DepartureGate     string `json:"departureGate"`
	ArrivalTerminal   string `json:"arrivalTerminal"`
	ArrivalGate       string `json:"arrivalGate"`
}

type codeshare struct {
	FsCode       string `json:"fsCode"`
	FlightNumber string `json:"flightNumber"`
}

// fieldSelection maps a direction to the vendor fields that fill the record.
// A departure board shows where a flight is going but when it leaves here, so
// it pairs the arrival airport with the departure-side times and gate; the
// arrival board is the exact inverse.
type fieldSelection struct {
	airport  func(fs *flightStatus) string
	date     func(fs *flightStatus) string
	actual   func(fs *flightStatus) *localDate
	terminal func(res *airportResources) string
	gate     func(res *airportResources) string
}

var selections = map[flightstats.Direction]fieldSelection{
	flightstats.Departure: {
		airport:  func(fs *flightStatus) string { return fs.ArrivalAirportFsCode },
		date:     func(fs *flightStatus) string { return fs.DepartureDate.DateLocal },
		actual:   func(fs *flightStatus) *localDate { return fs.OperationalTimes.ActualGateDeparture },
		terminal: func(res *airportResources) string { return res.DepartureTerminal },
		gate:     func(res *airportResources) string { return res.DepartureGate },
	},
	flightstats.Arrival: {
		airport:  func(fs *flightStatus) string { return fs.DepartureAirportFsCode },
		date:     func(fs *flightStatus) string { return fs.ArrivalDate.DateLocal },
		actual:   func(fs *flightStatus) *localDate { return fs.OperationalTimes.ActualGateArrival },
		terminal: func(res *airportResources) string { return res.ArrivalTerminal },
		gate:     func(res *airportResources) string { return res.ArrivalGate },
	},
}

// FlightsJSON normalizes one vendor payload into a JSON array of Flight
// records, or returns a sentinel when the payload is unusable.
func FlightsJSON(raw []byte, direction flightstats.Direction, airline string) string {
	var data payload
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Error().
			Err(err).
			Str("payload", string(raw)).
			Msg("Failed to parse FlightStats payload")
		return SentinelError
	}

	if len(data.Error) > 0 && !bytes.Equal(data.Error, []byte("null")) {
		var ve vendorError
		if err := json.Unmarshal(data.Error, &ve); err == nil && ve.ErrorCode == badAirportCode {
			return SentinelBadAirport
		}

		log.Error().
			RawJSON("vendor_error", data.Error).
			Msg("Error field present in FlightStats payload")
		return SentinelError
	}

	// Cross-reference tables; duplicate codes overwrite, last one wins.
	cities := make(map[string]string, len(data.Appendix.Airports))
	for _, a := range data.Appendix.Airports {
		cities[a.Fs] = a.City
	}
	airlines := make(map[string]string, len(data.Appendix.Airlines))
	for _, a := range data.Appendix.Airlines {
		airlines[a.Fs] = a.Name
	}

	sel := selections[direction]

	flights := make([]Flight, 0, len(data.FlightStatuses))
	for i := range data.FlightStatuses {
		fs := &data.FlightStatuses[i]
		airportCode := sel.airport(fs)

		flight := Flight{
			Airport:  airportCode + " " + cities[airportCode],
			Flight:   fs.CarrierFsCode + " " + fs.FlightNumber,
			Airline:  airlines[fs.CarrierFsCode],
			Schedule: truncate(sel.date(fs), 16), // YYYY-MM-DDTHH:MM sorts correctly as text
			Status:   fs.Status,
		}

		if airline != "" {
			flight.Date = truncate(sel.date(fs), 10) // YYYY-MM-DD
		}

		if actual := sel.actual(fs); actual != nil {
			flight.Actual = truncate(actual.DateLocal, 16)
		}

		if res := fs.AirportResources; res != nil {
			flight.Termgate = termGateLabel(sel.terminal(res), sel.gate(res))
		}

		if airline == "" || airline == fs.CarrierFsCode {
			flights = append(flights, flight)
		}

		if len(fs.Codeshares) == 0 {
			continue
		}

		operator := flight.Flight + " " + flight.Airline
		for _, cs := range fs.Codeshares {
			if airline != "" && airline != cs.FsCode {
				continue
			}

			shared := flight
			shared.Codeshare = 1
			shared.Operator = operator
			shared.Flight = cs.FsCode + " " + cs.FlightNumber
			shared.Airline = airlines[cs.FsCode]

			flights = append(flights, shared)
		}
	}

	out, err := json.Marshal(flights)
	if err != nil {
		log.Error().Err(err).Msg("Failed to serialize flight records")
		return SentinelError
	}

	return string(out)
}

// termGateLabel builds the combined terminal/gate label, e.g. "T-2 20".
// Either part may be absent; an empty label means the field is omitted.
func termGateLabel(terminal, gate string) string {
	switch {
	case terminal != "" && gate != "":
		return "T-" + terminal + " " + gate
	case terminal != "":
		return "T-" + terminal
	default:
		return gate
	}
}

// truncate returns at most n leading bytes of s. Vendor dates are ASCII so
// byte truncation is safe.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
