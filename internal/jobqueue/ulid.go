package jobqueue

import "github.com/google/uuid"

func newULID() string { return uuid.New().String() }
