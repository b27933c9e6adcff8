// Package store persists what an export run produces. Every backend accepts
// the same three kinds of documents.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angas/eloverblik-exporter/usage"
)

type Kind string

const (
	KindString    Kind = "string"
	KindMeterData Kind = "meter_data"
	KindUsage     Kind = "usage"
)

// Document is one of StringDoc, MeterDataDoc or UsageDoc.
type Document struct {
	Kind    Kind
	Key     string
	Value   string
	Payload json.RawMessage
	Series  usage.Series
}

func StringDoc(key, value string) Document {
	return Document{Kind: KindString, Key: key, Value: value}
}

// MeterDataDoc keeps a raw upstream response for auditing.
func MeterDataDoc(id string, payload []byte) Document {
	return Document{Kind: KindMeterData, Key: id, Payload: payload}
}

func UsageDoc(key string, series usage.Series) Document {
	return Document{Kind: KindUsage, Key: key, Series: series}
}

// Body is the serialized form written by the text based backends.
func (d Document) Body() ([]byte, error) {
	switch d.Kind {
	case KindString:
		return []byte(d.Value), nil
	case KindMeterData:
		return d.Payload, nil
	case KindUsage:
		b, err := json.Marshal(d.Series)
		if err != nil {
			return nil, fmt.Errorf("encoding usage series %s: %w", d.Key, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown document kind %q", d.Kind)
	}
}

// FileName turns the key into a single path element.
func (d Document) FileName() string {
	r := strings.NewReplacer("/", "-", "\\", "-", " ", "_", ":", "")
	name := r.Replace(d.Key)
	if name == "" || name == "." || name == ".." {
		name = "_"
	}
	if d.Kind != KindString && !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return name
}

type Store interface {
	Put(ctx context.Context, doc Document) error
}

// Multi writes every document to all stores. All stores are attempted, the
// errors are joined.
type Multi []Store

func (m Multi) Put(ctx context.Context, doc Document) error {
	var errs []error
	for _, s := range m {
		if err := s.Put(ctx, doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
