// Package xmlfeed parses the seller's XML order feed into inbox orders.
package xmlfeed

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/oracare/fulfillment/internal/domain/order"
)

// Feed is the root element of an order feed document
type Feed struct {
	XMLName xml.Name    `xml:"Orders"`
	Orders  []FeedOrder `xml:"Order" validate:"dive"`
}

// FeedOrder is one order element
type FeedOrder struct {
	OrderNumber   string     `xml:"OrderNumber" validate:"required,max=64"`
	OrderDate     string     `xml:"OrderDate" validate:"required"`
	CustomerName  string     `xml:"Customer>Name"`
	CustomerEmail string     `xml:"Customer>Email" validate:"omitempty,email"`
	ShipName      string     `xml:"ShipTo>Name"`
	ShipStreet1   string     `xml:"ShipTo>Street1"`
	ShipStreet2   string     `xml:"ShipTo>Street2"`
	ShipCity      string     `xml:"ShipTo>City"`
	ShipState     string     `xml:"ShipTo>State"`
	ShipPostal    string     `xml:"ShipTo>PostalCode"`
	ShipCountry   string     `xml:"ShipTo>Country" validate:"omitempty,len=2"`
	ShipPhone     string     `xml:"ShipTo>Phone"`
	Items         []FeedItem `xml:"Items>Item" validate:"required,min=1,dive"`
}

// FeedItem is one line of a feed order
type FeedItem struct {
	SKU       string `xml:"SKU" validate:"required,max=64"`
	LotNumber string `xml:"LotNumber" validate:"max=64"`
	Quantity  int    `xml:"Quantity" validate:"gt=0"`
	UnitPrice string `xml:"UnitPrice" validate:"omitempty,numeric"`
}

// dateFormats are the date layouts the feed has been observed to use
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parser parses and validates order feed documents
type Parser struct {
	validate *validator.Validate
	maxBytes int64
}

// NewParser creates a new Parser with a document size cap
func NewParser(maxBytes int64) *Parser {
	return &Parser{
		validate: validator.New(),
		maxBytes: maxBytes,
	}
}

// Parse decodes and validates a feed document
func (p *Parser) Parse(r io.Reader) (*Feed, error) {
	var feed Feed
	decoder := xml.NewDecoder(io.LimitReader(r, p.maxBytes))
	if err := decoder.Decode(&feed); err != nil {
		return nil, fmt.Errorf("xmlfeed: decode document: %w", err)
	}
	if err := p.validate.Struct(&feed); err != nil {
		return nil, fmt.Errorf("xmlfeed: invalid document: %w", err)
	}
	return &feed, nil
}

// ToOrder converts a feed order to an inbox order with its items
func (f *FeedOrder) ToOrder() (*order.Order, error) {
	orderDate, err := parseFeedDate(f.OrderDate)
	if err != nil {
		return nil, err
	}

	o, err := order.NewOrder(f.OrderNumber, orderDate, order.SourceXMLFeed)
	if err != nil {
		return nil, err
	}
	o.CustomerName = f.CustomerName
	o.CustomerEmail = f.CustomerEmail
	o.ShipName = f.ShipName
	o.ShipStreet1 = f.ShipStreet1
	o.ShipStreet2 = f.ShipStreet2
	o.ShipCity = f.ShipCity
	o.ShipState = f.ShipState
	o.ShipPostalCode = f.ShipPostal
	o.ShipCountry = f.ShipCountry
	o.ShipPhone = f.ShipPhone

	for _, item := range f.Items {
		price := decimal.Zero
		if item.UnitPrice != "" {
			price, err = decimal.NewFromString(item.UnitPrice)
			if err != nil {
				return nil, fmt.Errorf("xmlfeed: order %s item %s: bad unit price %q", f.OrderNumber, item.SKU, item.UnitPrice)
			}
		}
		o.Items = append(o.Items, order.Item{
			SKU:       item.SKU,
			LotNumber: item.LotNumber,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
	}

	if order.HasDuplicateSKU(o.Items) {
		return nil, fmt.Errorf("xmlfeed: order %s repeats a SKU", f.OrderNumber)
	}
	return o, nil
}

func parseFeedDate(s string) (time.Time, error) {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("xmlfeed: unparseable order date %q", s)
}
