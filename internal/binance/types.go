package binance

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dtrask/stinkbot/internal/domain"
)

// Wire shapes for the Binance market data streams. Prices and quantities
// arrive as JSON strings; levels arrive as ["price","size"] tuples.

type wireLevel [2]string

func (l wireLevel) toDomain() (domain.PriceLevel, error) {
	price, err := strconv.ParseFloat(l[0], 64)
	if err != nil {
		return domain.PriceLevel{}, fmt.Errorf("binance: parse price %q: %w", l[0], err)
	}
	size, err := strconv.ParseFloat(l[1], 64)
	if err != nil {
		return domain.PriceLevel{}, fmt.Errorf("binance: parse size %q: %w", l[1], err)
	}
	return domain.PriceLevel{Price: price, Size: size}, nil
}

func toLevels(in []wireLevel) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, 0, len(in))
	for _, l := range in {
		lvl, err := l.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, lvl)
	}
	return out, nil
}

type wireDepthSnapshot struct {
	LastUpdateID uint64      `json:"lastUpdateId"`
	Bids         []wireLevel `json:"bids"`
	Asks         []wireLevel `json:"asks"`
}

func (s wireDepthSnapshot) toDomain() (domain.DepthSnapshot, error) {
	bids, err := toLevels(s.Bids)
	if err != nil {
		return domain.DepthSnapshot{}, err
	}
	asks, err := toLevels(s.Asks)
	if err != nil {
		return domain.DepthSnapshot{}, err
	}
	return domain.DepthSnapshot{LastUpdateID: s.LastUpdateID, Bids: bids, Asks: asks}, nil
}

type wireDepthUpdate struct {
	EventType     string      `json:"e"`
	EventTime     int64       `json:"E"`
	Symbol        string      `json:"s"`
	FirstUpdateID uint64      `json:"U"`
	FinalUpdateID uint64      `json:"u"`
	Bids          []wireLevel `json:"b"`
	Asks          []wireLevel `json:"a"`
}

func (u wireDepthUpdate) toDomain() (domain.DepthUpdate, error) {
	bids, err := toLevels(u.Bids)
	if err != nil {
		return domain.DepthUpdate{}, err
	}
	asks, err := toLevels(u.Asks)
	if err != nil {
		return domain.DepthUpdate{}, err
	}
	return domain.DepthUpdate{
		EventTime:     time.UnixMilli(u.EventTime).UTC(),
		Symbol:        u.Symbol,
		FirstUpdateID: u.FirstUpdateID,
		FinalUpdateID: u.FinalUpdateID,
		Bids:          bids,
		Asks:          asks,
	}, nil
}

type wireTrade struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	BuyerIsMaker bool   `json:"m"`
}

func (t wireTrade) toDomain() (domain.Trade, error) {
	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("binance: parse trade price %q: %w", t.Price, err)
	}
	qty, err := strconv.ParseFloat(t.Quantity, 64)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("binance: parse trade quantity %q: %w", t.Quantity, err)
	}
	return domain.Trade{
		Price:        price,
		Quantity:     qty,
		Time:         time.UnixMilli(t.TradeTime).UTC(),
		BuyerIsMaker: t.BuyerIsMaker,
		Count:        1,
	}, nil
}

type wireAggTrade struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	AggTradeID   int64  `json:"a"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	FirstTradeID int64  `json:"f"`
	LastTradeID  int64  `json:"l"`
	TradeTime    int64  `json:"T"`
	BuyerIsMaker bool   `json:"m"`
}

func (t wireAggTrade) toDomain() (domain.Trade, error) {
	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("binance: parse agg trade price %q: %w", t.Price, err)
	}
	qty, err := strconv.ParseFloat(t.Quantity, 64)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("binance: parse agg trade quantity %q: %w", t.Quantity, err)
	}
	return domain.Trade{
		Price:        price,
		Quantity:     qty,
		Time:         time.UnixMilli(t.TradeTime).UTC(),
		BuyerIsMaker: t.BuyerIsMaker,
		Count:        t.LastTradeID - t.FirstTradeID + 1,
	}, nil
}

// Kline is a candlestick event payload.
type Kline struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	CloseTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Trades    int64
	Final     bool
}

type wireKline struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Data      struct {
		OpenTime  int64  `json:"t"`
		CloseTime int64  `json:"T"`
		Symbol    string `json:"s"`
		Interval  string `json:"i"`
		Open      string `json:"o"`
		Close     string `json:"c"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Volume    string `json:"v"`
		Trades    int64  `json:"n"`
		Final     bool   `json:"x"`
	} `json:"k"`
}

func (k wireKline) toEvent() (Kline, error) {
	out := Kline{
		Symbol:    k.Data.Symbol,
		Interval:  k.Data.Interval,
		OpenTime:  time.UnixMilli(k.Data.OpenTime).UTC(),
		CloseTime: time.UnixMilli(k.Data.CloseTime).UTC(),
		Trades:    k.Data.Trades,
		Final:     k.Data.Final,
	}
	for _, f := range []struct {
		src string
		dst *float64
	}{
		{k.Data.Open, &out.Open},
		{k.Data.High, &out.High},
		{k.Data.Low, &out.Low},
		{k.Data.Close, &out.Close},
		{k.Data.Volume, &out.Volume},
	} {
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return Kline{}, fmt.Errorf("binance: parse kline field %q: %w", f.src, err)
		}
		*f.dst = v
	}
	return out, nil
}

// Ticker is a rolling-window statistics payload. It covers the 24hr mini and
// full tickers as well as the 1h/4h/1d window tickers, which share the
// fields this system cares about.
type Ticker struct {
	Symbol     string
	LastPrice  float64
	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	Volume     float64
	EventTime  time.Time
	WindowSize string // empty for 24hr tickers
}

type wireTicker struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
	OpenPrice string `json:"o"`
	HighPrice string `json:"h"`
	LowPrice  string `json:"l"`
	Volume    string `json:"v"`
}

func (t wireTicker) toEvent(window string) (Ticker, error) {
	out := Ticker{
		Symbol:     t.Symbol,
		EventTime:  time.UnixMilli(t.EventTime).UTC(),
		WindowSize: window,
	}
	for _, f := range []struct {
		src string
		dst *float64
	}{
		{t.LastPrice, &out.LastPrice},
		{t.OpenPrice, &out.OpenPrice},
		{t.HighPrice, &out.HighPrice},
		{t.LowPrice, &out.LowPrice},
		{t.Volume, &out.Volume},
	} {
		if f.src == "" {
			continue
		}
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return Ticker{}, fmt.Errorf("binance: parse ticker field %q: %w", f.src, err)
		}
		*f.dst = v
	}
	return out, nil
}

// BookTicker is the best bid/ask push stream payload. It has no event tag on
// the wire and is recognized by its field shape.
type BookTicker struct {
	UpdateID uint64
	Symbol   string
	BidPrice float64
	BidQty   float64
	AskPrice float64
	AskQty   float64
}

type wireBookTicker struct {
	UpdateID uint64 `json:"u"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

func (t wireBookTicker) toEvent() (BookTicker, error) {
	out := BookTicker{UpdateID: t.UpdateID, Symbol: t.Symbol}
	for _, f := range []struct {
		src string
		dst *float64
	}{
		{t.BidPrice, &out.BidPrice},
		{t.BidQty, &out.BidQty},
		{t.AskPrice, &out.AskPrice},
		{t.AskQty, &out.AskQty},
	} {
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return BookTicker{}, fmt.Errorf("binance: parse book ticker field %q: %w", f.src, err)
		}
		*f.dst = v
	}
	return out, nil
}

// AvgPrice is the average price stream payload.
type AvgPrice struct {
	Symbol    string
	Interval  string
	Price     float64
	TradeTime time.Time
}

type wireAvgPrice struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Price     string `json:"w"`
	TradeTime int64  `json:"T"`
}

func (t wireAvgPrice) toEvent() (AvgPrice, error) {
	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		return AvgPrice{}, fmt.Errorf("binance: parse avg price %q: %w", t.Price, err)
	}
	return AvgPrice{
		Symbol:    t.Symbol,
		Interval:  t.Interval,
		Price:     price,
		TradeTime: time.UnixMilli(t.TradeTime).UTC(),
	}, nil
}
