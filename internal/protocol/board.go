package protocol

// Cell is one square of a grid board. Balls holds token colors in order.
type Cell struct {
	Balls        []string `json:"balls"`
	X            int      `json:"x"`
	Y            int      `json:"y"`
	CriticalMass int      `json:"critical_mass,omitempty"`
}

// Board is a grid indexed [y][x]. Only grid variants (chain reaction) send it.
type Board [][]Cell

func (b Board) Width() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Empty reports whether there is no grid, e.g. number games that send [].
func (b Board) Empty() bool { return b.Width() == 0 }

// Contains reports whether (x, y) is on the board.
func (b Board) Contains(x, y int) bool {
	return y >= 0 && y < len(b) && x >= 0 && x < len(b[y])
}

// Clone deep-copies the board so snapshots cannot alias session state.
func (b Board) Clone() Board {
	if b == nil {
		return nil
	}
	out := make(Board, len(b))
	for y, row := range b {
		out[y] = make([]Cell, len(row))
		for x, c := range row {
			c.Balls = append([]string(nil), c.Balls...)
			out[y][x] = c
		}
	}
	return out
}

// BallCount returns how many tokens of color sit on the board; "" counts all.
func (b Board) BallCount(color string) int {
	n := 0
	for _, row := range b {
		for _, c := range row {
			for _, ball := range c.Balls {
				if color == "" || ball == color {
					n++
				}
			}
		}
	}
	return n
}
