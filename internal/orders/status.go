package orders

type Status string

const (
	StatusReserved Status = "reserved"
	StatusPaid     Status = "paid"
	StatusCanceled Status = "canceled"
)

// paid and canceled are terminal; the only moves are out of reserved.
var validNext = map[Status]map[Status]bool{
	StatusReserved: {StatusPaid: true, StatusCanceled: true},
	StatusPaid:     {},
	StatusCanceled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
