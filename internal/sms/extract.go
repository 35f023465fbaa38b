package sms

import "time"

// MessageExtract wraps one batch of records for snapshot export. Count always
// equals len(Records) and the record order is the provider response order.
// An extract is built fresh for every export, never merged with a prior one.
type MessageExtract struct {
	ExtractDate UTCTime         `json:"extract_date"`
	Count       int             `json:"count"`
	Records     []MessageRecord `json:"records"`
}

// NewExtract stamps the batch with the current UTC time.
func NewExtract(records []MessageRecord) MessageExtract {
	return NewExtractAt(time.Now(), records)
}

// NewExtractAt builds an extract with an explicit timestamp.
func NewExtractAt(at time.Time, records []MessageRecord) MessageExtract {
	if records == nil {
		records = []MessageRecord{}
	}
	return MessageExtract{
		ExtractDate: UTCTime{at.UTC()},
		Count:       len(records),
		Records:     records,
	}
}
