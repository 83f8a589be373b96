package seedgen

// HTTP status code constants.
const (
	StatusOK        = 200
	StatusCreated   = 201
	StatusNoContent = 204
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
)
