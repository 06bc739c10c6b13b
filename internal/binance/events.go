// Package binance decodes Binance spot market data streams into typed events
// and provides the REST snapshot and WebSocket stream clients the feed layer
// is built on.
package binance

import (
	"encoding/json"
	"strings"

	"github.com/dtrask/stinkbot/internal/domain"
)

// EventType discriminates the decoded event union.
type EventType string

const (
	EventDepthUpdate  EventType = "depthUpdate"
	EventTrade        EventType = "trade"
	EventAggTrade     EventType = "aggTrade"
	EventKline        EventType = "kline"
	EventMiniTicker   EventType = "miniTicker"
	EventTicker       EventType = "ticker"
	EventWindowTicker EventType = "windowTicker"
	EventBookTicker   EventType = "bookTicker"
	EventAvgPrice     EventType = "avgPrice"
	EventUnknown      EventType = "unknown"
)

// Event is the tagged union of decoded stream messages. Exactly the pointer
// matching Type is set. Unrecognized payloads decode to EventUnknown with Raw
// carrying the original bytes; they never abort the stream.
type Event struct {
	Type EventType

	DepthUpdate *domain.DepthUpdate
	Trade       *domain.Trade
	Kline       *Kline
	Ticker      *Ticker
	BookTicker  *BookTicker
	AvgPrice    *AvgPrice

	Raw json.RawMessage
}

// combined-stream envelope: {"stream":"btcusdt@depth","data":{...}}.
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// eventTag sniffs the "e" discriminant. The EventTime field exists so the
// numeric "E" key every payload carries gets an exact match instead of
// case-insensitively landing on the string-typed "e".
type eventTag struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
}

// DecodeEvent parses a raw stream message. Both combined-stream envelopes and
// bare payloads are accepted. An error is returned only for malformed JSON or
// a recognized discriminant with an unparseable body; shapes this decoder
// does not know yield EventUnknown.
func DecodeEvent(data []byte) (Event, error) {
	var env streamEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, err
	}
	payload := data
	if len(env.Data) > 0 {
		payload = env.Data
	}

	var tag eventTag
	if err := json.Unmarshal(payload, &tag); err != nil {
		return Event{}, err
	}

	switch {
	case tag.EventType == "depthUpdate":
		var w wireDepthUpdate
		if err := json.Unmarshal(payload, &w); err != nil {
			return Event{}, err
		}
		u, err := w.toDomain()
		if err != nil {
			return Event{}, err
		}
		return Event{Type: EventDepthUpdate, DepthUpdate: &u}, nil

	case tag.EventType == "trade":
		var w wireTrade
		if err := json.Unmarshal(payload, &w); err != nil {
			return Event{}, err
		}
		t, err := w.toDomain()
		if err != nil {
			return Event{}, err
		}
		return Event{Type: EventTrade, Trade: &t}, nil

	case tag.EventType == "aggTrade":
		var w wireAggTrade
		if err := json.Unmarshal(payload, &w); err != nil {
			return Event{}, err
		}
		t, err := w.toDomain()
		if err != nil {
			return Event{}, err
		}
		return Event{Type: EventAggTrade, Trade: &t}, nil

	case tag.EventType == "kline":
		var w wireKline
		if err := json.Unmarshal(payload, &w); err != nil {
			return Event{}, err
		}
		k, err := w.toEvent()
		if err != nil {
			return Event{}, err
		}
		return Event{Type: EventKline, Kline: &k}, nil

	case tag.EventType == "avgPrice":
		var w wireAvgPrice
		if err := json.Unmarshal(payload, &w); err != nil {
			return Event{}, err
		}
		a, err := w.toEvent()
		if err != nil {
			return Event{}, err
		}
		return Event{Type: EventAvgPrice, AvgPrice: &a}, nil

	case tag.EventType == "24hrMiniTicker":
		return decodeTicker(payload, EventMiniTicker, "")

	case tag.EventType == "24hrTicker":
		return decodeTicker(payload, EventTicker, "")

	case strings.HasSuffix(tag.EventType, "Ticker"):
		// Window tickers carry their window in the tag: 1hTicker, 4hTicker...
		window := strings.TrimSuffix(tag.EventType, "Ticker")
		return decodeTicker(payload, EventWindowTicker, window)
	}

	// Book ticker pushes have no "e" tag; recognize them by shape.
	if bt, ok := tryBookTicker(payload); ok {
		return Event{Type: EventBookTicker, BookTicker: &bt}, nil
	}

	return Event{Type: EventUnknown, Raw: append(json.RawMessage(nil), payload...)}, nil
}

func decodeTicker(payload []byte, typ EventType, window string) (Event, error) {
	var w wireTicker
	if err := json.Unmarshal(payload, &w); err != nil {
		return Event{}, err
	}
	t, err := w.toEvent(window)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Ticker: &t}, nil
}

func tryBookTicker(payload []byte) (BookTicker, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return BookTicker{}, false
	}
	for _, key := range []string{"u", "s", "b", "a"} {
		if _, ok := probe[key]; !ok {
			return BookTicker{}, false
		}
	}
	var w wireBookTicker
	if err := json.Unmarshal(payload, &w); err != nil {
		return BookTicker{}, false
	}
	bt, err := w.toEvent()
	if err != nil {
		return BookTicker{}, false
	}
	return bt, true
}
