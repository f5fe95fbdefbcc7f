package repository

import "errors"

// ErrDuplicateUser is returned when a username or email is already taken.
var ErrDuplicateUser = errors.New("username or email already exists")
