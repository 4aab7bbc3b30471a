package db

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"

	badger "github.com/dgraph-io/badger/v3"

	"github.com/supby/zbridge/internal/logger"
)

var ErrDeviceNotFound = errors.New("device not found")

type DeviceDB interface {
	GetDevices(ctx context.Context) ([]Device, error)
	GetDevice(ctx context.Context, ieeeAddress uint64) (Device, error)
	SaveDevice(ctx context.Context, device Device) error
	UpdateDevice(ctx context.Context, ieeeAddress uint64, fn func(device *Device)) error
	DeleteDevice(ctx context.Context, ieeeAddress uint64) error
	Close(ctx context.Context) error
}

func NewDeviceDB(dirname string, log logger.Logger) (DeviceDB, error) {
	opt := badger.DefaultOptions(dirname)
	opt.ValueLogFileSize = 1024 * 1024 * 40
	opt.Logger = badgerLogger{log}

	db, err := badger.Open(opt)
	if err != nil {
		return nil, err
	}

	return &deviceDB{
		db: db,
	}, nil
}

// badgerLogger adapts the bridge logger to badger.Logger
type badgerLogger struct {
	logger.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.Error(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.Warn(f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.Debug(f, v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.Debug(f, v...) }

type deviceDB struct {
	db *badger.DB
}

func (d *deviceDB) GetDevices(ctx context.Context) ([]Device, error) {
	var ret []Device
	err := d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				d := Device{
					IEEEAddress: binary.LittleEndian.Uint64(item.Key()),
				}

				dec := gob.NewDecoder(bytes.NewReader(v))
				err := dec.Decode(&d)
				if err != nil {
					return err
				}

				ret = append(ret, d)

				return nil
			})

			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return ret, nil
}

func deviceKey(ieeeAddress uint64) []byte {
	key := make([]byte, 8)
	binary.LittleEndian.PutUint64(key, ieeeAddress)
	return key
}

func (d *deviceDB) SaveDevice(ctx context.Context, device Device) error {
	key := deviceKey(device.IEEEAddress)

	buf := bytes.Buffer{}
	enc := gob.NewEncoder(&buf)
	err := enc.Encode(device)
	if err != nil {
		return err
	}

	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf.Bytes())
	})
}

// UpdateDevice applies fn to the stored device, or to a new one with only the address
// set, inside a single transaction.
func (d *deviceDB) UpdateDevice(ctx context.Context, ieeeAddress uint64, fn func(device *Device)) error {
	key := deviceKey(ieeeAddress)

	return d.db.Update(func(txn *badger.Txn) error {
		device := Device{IEEEAddress: ieeeAddress}

		item, err := txn.Get(key)
		switch {
		case err == nil:
			err = item.Value(func(v []byte) error {
				return gob.NewDecoder(bytes.NewReader(v)).Decode(&device)
			})
			if err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		fn(&device)
		device.IEEEAddress = ieeeAddress

		buf := bytes.Buffer{}
		if err := gob.NewEncoder(&buf).Encode(device); err != nil {
			return err
		}

		return txn.Set(key, buf.Bytes())
	})
}

func (d *deviceDB) DeleteDevice(ctx context.Context, ieeeAddress uint64) error {
	key := deviceKey(ieeeAddress)

	err := d.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(key); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		return err
	}

	return nil
}

func (d *deviceDB) GetDevice(ctx context.Context, ieeeAddress uint64) (Device, error) {
	key := deviceKey(ieeeAddress)

	var ret Device
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrDeviceNotFound
		}
		if err != nil {
			return err
		}

		err = item.Value(func(v []byte) error {
			dec := gob.NewDecoder(bytes.NewReader(v))
			err := dec.Decode(&ret)
			if err != nil {
				return err
			}

			return nil
		})

		if err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		return Device{}, err
	}

	return ret, nil
}

func (d *deviceDB) Close(ctx context.Context) error {
	if err := d.db.Close(); err != nil {
		return err
	}

	return nil
}
