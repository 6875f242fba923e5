package codec

import (
	"fmt"
	"path"
	"strings"
	"time"

	"btc-data/internal/model"
)

// DefaultPrefix is the zone the catalog crawls for payloads.
const DefaultPrefix = "silver"

// PartitionKey locates every object of one (interval, generation date).
type PartitionKey struct {
	Prefix   string
	Interval model.Interval
	Date     time.Time // UTC date of the ingestion timestamp
}

// NewPartitionKey truncates ingestion to its UTC calendar date.
func NewPartitionKey(prefix string, iv model.Interval, ingestion time.Time) PartitionKey {
	y, m, d := ingestion.UTC().Date()
	return PartitionKey{
		Prefix:   strings.Trim(prefix, "/"),
		Interval: iv,
		Date:     time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
	}
}

// Dir renders <prefix>/interval=<iv>/ingestion_date=YYYY/MM/DD.
func (k PartitionKey) Dir() string {
	return path.Join(k.Prefix,
		"interval="+k.Interval.String(),
		"ingestion_date="+k.Date.Format("2006/01/02"))
}

// Object is the full key of one run's object inside the partition.
func (k PartitionKey) Object(runID, ext string) string {
	return path.Join(k.Dir(), runID+"."+ext)
}

func (k PartitionKey) String() string { return k.Dir() }

// FullRunID names a full-history run by its ingestion time.
func FullRunID(iv model.Interval, ingestion time.Time) string {
	return fmt.Sprintf("bitcoin_market_%s_%s", iv, ingestion.UTC().Format("20060102_150405"))
}

// WindowRunID names an incremental run by the boundary it covers, so every
// rerun of one window lands on one key.
func WindowRunID(iv model.Interval, boundary time.Time) string {
	layout := "20060102"
	if iv == model.FourHour {
		layout = "20060102_1504"
	}
	return fmt.Sprintf("bitcoin_market_%s_%s", iv, boundary.UTC().Format(layout))
}
