package repository

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// Коллизия кода бронирования, вызывающий может повторить с новым кодом.
	ErrDuplicateBookingID = errors.New("duplicate booking id")
	// Условное обновление не нашло документ в ожидаемом статусе.
	ErrStatusChanged = errors.New("booking status changed concurrently")
)

// notFound сводит «запись не найдена» драйверов к ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// duplicateBookingID: unique-индекс по booking_id в любом из хранилищ.
func duplicateBookingID(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateBookingID
	}
	return err
}
