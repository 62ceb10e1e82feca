package world

// Food is an inert pile placed at a random cell. It only blocks movement.
type Food struct {
	ID       uint64 `json:"id"`
	Position Coord  `json:"position"`
}
