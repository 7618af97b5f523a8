// Package store persists analyzed calls per customer in sqlite.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vijay-svsk/call-summarizer/apperr"
	"github.com/vijay-svsk/call-summarizer/report"
)

type DB struct {
	db     *gorm.DB
	cipher *Cipher
	log    logrus.FieldLogger
}

type Option func(*DB)

// WithCipher seals every stored record before it is written.
func WithCipher(c *Cipher) Option { return func(d *DB) { d.cipher = c } }

func WithLogger(l logrus.FieldLogger) Option { return func(d *DB) { d.log = l } }

// Open opens (or creates) the sqlite database at path and migrates it.
func Open(path string, opts ...Option) (*DB, error) {
	d := &DB{log: logrus.StandardLogger()}
	for _, o := range opts {
		o(d)
	}
	g, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: newGormLogger(d.log)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := g.AutoMigrate(&Customer{}, &Call{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	d.db = g
	d.log.WithField("path", path).Debug("database ready")
	return d, nil
}

func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AddCustomer returns the customer with name, creating it if needed.
func (d *DB) AddCustomer(ctx context.Context, name string) (*Customer, error) {
	name, err := customerName(name)
	if err != nil {
		return nil, err
	}
	var c Customer
	if err := d.db.WithContext(ctx).Where(Customer{Name: name}).FirstOrCreate(&c).Error; err != nil {
		return nil, fmt.Errorf("add customer %q: %w", name, err)
	}
	return &c, nil
}

// transcriptPayload is the part of an unsealed record kept apart from the
// report column.
type transcriptPayload struct {
	Text     string           `json:"text"`
	Segments []report.Segment `json:"segments"`
}

// Store saves rec under customer, creating the customer on demand, and
// returns the call ID.
func (d *DB) Store(ctx context.Context, customer string, rec *report.Record) (string, error) {
	if rec == nil {
		return "", apperr.New(apperr.KindInvalidInput, "nil record")
	}
	name, err := customerName(customer)
	if err != nil {
		return "", err
	}

	call := Call{
		RecordID:  rec.ID,
		AudioName: rec.AudioName,
		CreatedAt: rec.CreatedAt,
	}
	if d.cipher != nil {
		// Narrative, details and the structured block can all quote the
		// call, so the whole record is sealed.
		var body bytes.Buffer
		if err := report.Encode(&body, rec, report.FormatJSON); err != nil {
			return "", err
		}
		if call.Report, err = d.cipher.Encrypt(body.Bytes()); err != nil {
			return "", err
		}
		call.Encrypted = true
	} else {
		payload, err := json.Marshal(transcriptPayload{Text: rec.Transcript, Segments: rec.Segments})
		if err != nil {
			return "", err
		}
		stripped := *rec
		stripped.Transcript = ""
		stripped.Segments = nil
		var body bytes.Buffer
		if err := report.Encode(&body, &stripped, report.FormatJSON); err != nil {
			return "", err
		}
		call.Report, call.Transcript = body.String(), string(payload)
	}

	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Customer
		if err := tx.Where(Customer{Name: name}).FirstOrCreate(&c).Error; err != nil {
			return err
		}
		call.CustomerID = c.ID
		return tx.Create(&call).Error
	})
	if err != nil {
		return "", fmt.Errorf("store call for %q: %w", name, err)
	}
	d.log.WithFields(logrus.Fields{"customer": name, "call_id": call.ID, "encrypted": call.Encrypted}).Info("call stored")
	return call.ID, nil
}

// FetchByCustomer returns the customer's records, oldest first. An unknown
// customer has no records.
func (d *DB) FetchByCustomer(ctx context.Context, customer string) ([]*report.Record, error) {
	name, err := customerName(customer)
	if err != nil {
		return nil, err
	}
	db := d.db.WithContext(ctx)

	var c Customer
	if err := db.Where(Customer{Name: name}).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []*report.Record{}, nil
		}
		return nil, err
	}
	var calls []Call
	if err := db.Where("customer_id = ?", c.ID).Order("created_at, rowid").Find(&calls).Error; err != nil {
		return nil, err
	}

	out := make([]*report.Record, 0, len(calls))
	for _, call := range calls {
		rec, err := d.decode(call)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", call.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (d *DB) decode(c Call) (*report.Record, error) {
	if c.Encrypted {
		if d.cipher == nil {
			return nil, apperr.New(apperr.KindInvalidInput, "call is encrypted and no key is configured")
		}
		body, err := d.cipher.Decrypt(c.Report)
		if err != nil {
			return nil, err
		}
		return report.Decode(bytes.NewReader(body), report.FormatJSON)
	}

	rec, err := report.Decode(strings.NewReader(c.Report), report.FormatJSON)
	if err != nil {
		return nil, err
	}
	var p transcriptPayload
	if err := json.Unmarshal([]byte(c.Transcript), &p); err != nil {
		return nil, err
	}
	rec.Transcript, rec.Segments = p.Text, p.Segments
	return rec, nil
}

func customerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.New(apperr.KindInvalidInput, "customer name is required")
	}
	return name, nil
}
