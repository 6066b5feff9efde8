// Package badgerdevice implements pkg/bufcache.BlockDevice on top of
// BadgerDB, giving the abstract block I/O device collaborator a real,
// durable backend.
//
// Badger stays entirely at this edge: pkg/bufcache only depends on the
// BlockDevice interface and never imports a storage engine directly.
// badgerdevice is a swappable concrete implementation passed in through
// WithDevice; no other package in this module imports it.
//
// © 2025 bufcache authors. MIT License.
package badgerdevice

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// Device persists each block as a Badger key "device:blockNo".
type Device struct {
	db *badger.DB
}

// Open opens (or creates) a Badger database at dir and wraps it as a
// BlockDevice.
func Open(dir string) (*Device, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("badgerdevice: open %s: %w", dir, err)
	}
	return &Device{db: db}, nil
}

// Close closes the underlying Badger database.
func (d *Device) Close() error {
	return d.db.Close()
}

func key(device, blockNo uint32) []byte {
	return []byte(fmt.Sprintf("%d:%d", device, blockNo))
}

// ReadBlock fills page from the stored block, or zero-fills page if the
// block has never been written.
func (d *Device) ReadBlock(_ context.Context, device, blockNo uint32, page []byte) error {
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(device, blockNo))
		if err == badger.ErrKeyNotFound {
			for i := range page {
				page[i] = 0
			}
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			n := copy(page, val)
			for i := n; i < len(page); i++ {
				page[i] = 0
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("badgerdevice: read %d:%d: %w", device, blockNo, err)
	}
	return nil
}

// WriteBlock persists page under the block's key.
func (d *Device) WriteBlock(_ context.Context, device, blockNo uint32, page []byte) error {
	cp := make([]byte, len(page))
	copy(cp, page)
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(device, blockNo), cp)
	})
	if err != nil {
		return fmt.Errorf("badgerdevice: write %d:%d: %w", device, blockNo, err)
	}
	return nil
}
