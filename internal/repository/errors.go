// Package repository contains the MySQL data access layer.  Sentinel errors
// defined here let callers tell "not there" from "someone else got there
// first" without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrShowNotFound indicates that a show was not located in the DB.
	ErrShowNotFound = errors.New("show not found")
	// ErrBookingNotFound indicates that a booking was not located in the DB.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrUserNotFound indicates that a user was not located in the DB.
	ErrUserNotFound = errors.New("user not found")
	// ErrVersionConflict is returned by versioned writes when the row changed
	// since it was read.  The caller should reload and retry.
	ErrVersionConflict = errors.New("version conflict")
	// ErrConflict is returned when an insert collides with an existing row.
	ErrConflict = errors.New("conflict")
)

const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
