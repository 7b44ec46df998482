package market

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "trendscope/internal/errors"
	"trendscope/internal/models"
)

const csvDateLayout = "2006-01-02"

// csvDate reads and writes YYYY-MM-DD dates.
type csvDate struct {
	Time time.Time
}

func (d *csvDate) UnmarshalCSV(s string) error {
	t, err := time.Parse(csvDateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d csvDate) MarshalCSV() (string, error) {
	return d.Time.Format(csvDateLayout), nil
}

// csvRow is one line of a Date,Open,High,Low,Close,Volume file. Other
// columns, such as Adj Close, are ignored.
type csvRow struct {
	Date   csvDate `csv:"Date"`
	Open   float64 `csv:"Open"`
	High   float64 `csv:"High"`
	Low    float64 `csv:"Low"`
	Close  float64 `csv:"Close"`
	Volume int64   `csv:"Volume"`
}

// CSVSource reads <Dir>/<SYMBOL>.csv files.
type CSVSource struct {
	Dir string
}

// NewCSVSource creates a source reading CSV files from dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir}
}

func (c *CSVSource) Name() string {
	return "csv"
}

// Path returns the file holding symbol's history.
func (c *CSVSource) Path(symbol string) string {
	return filepath.Join(c.Dir, NormalizeSymbol(symbol)+".csv")
}

func (c *CSVSource) History(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return models.PriceSeries{}, err
	}
	symbol = NormalizeSymbol(symbol)

	f, err := os.Open(c.Path(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return models.PriceSeries{}, apperrors.NewDataError("candles", symbol, "no csv file at "+c.Path(symbol), apperrors.ErrDataNotFound)
		}
		return models.PriceSeries{}, apperrors.Wrapf(err, "opening csv for %s", symbol)
	}
	defer f.Close()

	candles, err := ReadCSV(f)
	if err != nil {
		return models.PriceSeries{}, apperrors.NewDataError("candles", symbol, "malformed csv: "+err.Error(), apperrors.ErrInvalidSeries)
	}
	candles = within(candles, from, to)
	if len(candles) == 0 {
		return models.PriceSeries{}, apperrors.NewDataError("candles", symbol, "no rows in range", apperrors.ErrDataNotFound)
	}
	return models.NewPriceSeries(symbol, candles), nil
}

// ReadCSV parses candles from r, dropping rows without a usable close.
func ReadCSV(r io.Reader) ([]models.Candle, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, models.Candle{
			Timestamp: row.Date.Time,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
		})
	}
	return cleanCandles(candles), nil
}

// WriteCSV writes candles in the format ReadCSV reads.
func WriteCSV(w io.Writer, candles []models.Candle) error {
	rows := make([]*csvRow, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, &csvRow{
			Date:   csvDate{Time: c.Timestamp},
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}
	return gocsv.Marshal(&rows, w)
}

// Save writes series to its file under Dir, creating Dir if needed.
func (c *CSVSource) Save(series models.PriceSeries) (string, error) {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return "", apperrors.Wrap(err, "creating csv directory")
	}
	path := c.Path(series.Symbol)
	f, err := os.Create(path)
	if err != nil {
		return "", apperrors.Wrap(err, "creating csv file")
	}
	defer f.Close()

	if err := WriteCSV(f, series.Candles); err != nil {
		return "", apperrors.Wrap(err, "writing csv")
	}
	return path, nil
}
