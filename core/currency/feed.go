package currency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"unitconvert/internal/errors"
)

// feedDateLayout is the layout of the Cube time attribute.
const feedDateLayout = "2006-01-02"

// Rate is one feed entry: how many units of Code buy one unit of the
// default currency.
type Rate struct {
	Code string
	Rate decimal.Decimal
}

// Multiplier returns how many default-currency units one unit of Code is worth.
func (r Rate) Multiplier() float64 {
	return decimal.NewFromInt(1).Div(r.Rate).InexactFloat64()
}

// Feed is a parsed exchange-rate document.
type Feed struct {
	// Date is the reference date published by the feed, zero if absent
	Date time.Time

	// Rates holds the usable entries in document order
	Rates []Rate

	// Rejected lists codes whose rate was zero, negative or unparsable
	Rejected []string

	// Hash identifies the document content
	Hash string
}

// ParseFeed reads a daily reference-rate document. Rates sit on repeated
// Cube elements carrying currency and rate attributes; the enclosing Cube
// may carry the reference date in a time attribute. Namespaces are ignored.
func ParseFeed(data []byte) (*Feed, error) {
	feed := &Feed{Hash: documentHash(data)}
	dec := xml.NewDecoder(bytes.NewReader(data))

	cubes := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Parsing("malformed rate document", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Cube" {
			continue
		}
		cubes++

		var code, rate, date string
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "currency":
				code = attr.Value
			case "rate":
				rate = attr.Value
			case "time":
				date = attr.Value
			}
		}

		if date != "" && feed.Date.IsZero() {
			if d, err := time.Parse(feedDateLayout, date); err == nil {
				feed.Date = d
			}
		}
		if code == "" {
			continue
		}

		value, err := decimal.NewFromString(rate)
		if err != nil || !value.IsPositive() {
			feed.Rejected = append(feed.Rejected, code)
			continue
		}
		feed.Rates = append(feed.Rates, Rate{Code: code, Rate: value})
	}

	if cubes == 0 {
		return nil, errors.New(errors.TypeParsing, "rate document contains no Cube elements")
	}
	return feed, nil
}

// Multipliers maps every usable code to its multiplier. A code listed twice
// keeps its last rate.
func (f *Feed) Multipliers() map[string]float64 {
	out := make(map[string]float64, len(f.Rates))
	for _, r := range f.Rates {
		out[r.Code] = r.Multiplier()
	}
	return out
}

func documentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}
